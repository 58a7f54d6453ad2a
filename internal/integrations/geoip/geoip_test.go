package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mapCache struct {
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.data[key] = value
	return nil
}

func TestIPAPIClient_Lookup_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/json/203.0.113.9", r.URL.Path)
		require.Equal(t, "status,message,city,regionName,country,lat,lon", r.URL.Query().Get("fields"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","city":"Berlin","regionName":"Berlin","country":"Germany","lat":52.52,"lon":13.405}`))
	}))
	defer srv.Close()

	c := NewIPAPIClient(srv.URL, time.Second)
	loc, err := c.Lookup(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	require.Equal(t, "Berlin, Berlin, Germany", loc.String())
	require.NotNil(t, loc.Latitude)
	require.InDelta(t, 52.52, *loc.Latitude, 0.001)
}

func TestIPAPIClient_Lookup_ProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer srv.Close()

	c := NewIPAPIClient(srv.URL, time.Second)
	_, err := c.Lookup(context.Background(), "203.0.113.9")
	require.Error(t, err)
	require.Contains(t, err.Error(), "reserved range")
}

func TestResolver_PrivateAddressesSkipProvider(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	r := NewResolver(NewIPAPIClient(srv.URL, time.Second), newMapCache(), time.Minute, time.Second)
	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.5", "::1", "not-an-ip", ""} {
		loc := r.Resolve(context.Background(), ip)
		require.Equal(t, "Local Network, Local Area, Local", loc.String(), "ip %q", ip)
	}
	require.Zero(t, calls.Load())
}

func TestResolver_ProviderErrorFallsBackToUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(NewIPAPIClient(srv.URL, time.Second), newMapCache(), time.Minute, time.Second)
	loc := r.Resolve(context.Background(), "203.0.113.9")
	require.Equal(t, "Unknown City, Unknown Region, Unknown Country", loc.String())
}

func TestResolver_SlowProviderTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"status":"success","city":"Berlin","regionName":"Berlin","country":"Germany"}`))
	}))
	defer srv.Close()

	r := NewResolver(NewIPAPIClient(srv.URL, time.Minute), newMapCache(), time.Minute, 50*time.Millisecond)
	loc := r.Resolve(context.Background(), "203.0.113.9")
	require.Equal(t, "Unknown City, Unknown Region, Unknown Country", loc.String())
}

func TestResolver_CachesSuccessfulLookups(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status":"success","city":"Berlin","regionName":"Berlin","country":"Germany","lat":52.52,"lon":13.405}`))
	}))
	defer srv.Close()

	r := NewResolver(NewIPAPIClient(srv.URL, time.Second), newMapCache(), time.Minute, time.Second)
	first := r.Resolve(context.Background(), "203.0.113.9")
	second := r.Resolve(context.Background(), "203.0.113.9")
	require.Equal(t, first, second)
	require.Equal(t, int64(1), calls.Load())
}

func TestStaticClient(t *testing.T) {
	c := NewStaticClient("Springfield", "Oregon", "United States")
	loc, err := c.Lookup(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	require.Equal(t, "Springfield, Oregon, United States", loc.String())
}
