package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const defaultBaseURL = "http://ip-api.com"

type IPAPIClient struct {
	baseURL string
	client  *http.Client
}

func NewIPAPIClient(baseURL string, timeout time.Duration) *IPAPIClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &IPAPIClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	City    string  `json:"city"`
	Region  string  `json:"regionName"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (c *IPAPIClient) Lookup(ctx context.Context, ip string) (Location, error) {
	url := fmt.Sprintf("%s/json/%s?fields=status,message,city,regionName,country,lat,lon", c.baseURL, ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, errors.Wrap(err, "build geo request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Location{}, errors.Wrap(err, "geo request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, errors.Errorf("geo provider status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, errors.Wrap(err, "decode geo response")
	}
	if body.Status != "success" {
		return Location{}, errors.Errorf("geo lookup failed: %s", body.Message)
	}

	lat, lon := body.Lat, body.Lon
	return Location{
		City:      body.City,
		Region:    body.Region,
		Country:   body.Country,
		Latitude:  &lat,
		Longitude: &lon,
	}, nil
}
