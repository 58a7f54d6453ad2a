package geoip

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"time"

	"github.com/papertags/smart-papertags-app/internal/cache"
)

// Resolver turns finder IPs into display locations. It never returns an
// error: private addresses short-circuit to a local placeholder, provider
// failures degrade to an unknown placeholder. Successful lookups are cached.
type Resolver struct {
	client   Client
	cache    cache.BytesCache
	cacheTTL time.Duration
	timeout  time.Duration
}

func NewResolver(client Client, c cache.BytesCache, cacheTTL, timeout time.Duration) *Resolver {
	return &Resolver{
		client:   client,
		cache:    c,
		cacheTTL: cacheTTL,
		timeout:  timeout,
	}
}

func isPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified()
}

func (r *Resolver) Resolve(ctx context.Context, ip string) Location {
	if isPrivateIP(ip) {
		return localLocation
	}

	key := "geo:" + ip
	if r.cache != nil {
		if raw, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			var loc Location
			if err := json.Unmarshal(raw, &loc); err == nil {
				return loc
			}
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	loc, err := r.client.Lookup(lookupCtx, ip)
	if err != nil {
		slog.Warn("geo lookup failed", "ip", ip, "error", err)
		return unknownLocation
	}

	if r.cache != nil {
		if raw, err := json.Marshal(loc); err == nil {
			if err := r.cache.Set(ctx, key, raw, r.cacheTTL); err != nil {
				slog.Warn("geo cache set failed", "ip", ip, "error", err)
			}
		}
	}
	return loc
}
