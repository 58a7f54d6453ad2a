package geoip

import "context"

// StaticClient always answers with a fixed location. Used in environments
// without outbound network access.
type StaticClient struct {
	loc Location
}

func NewStaticClient(city, region, country string) *StaticClient {
	return &StaticClient{loc: Location{City: city, Region: region, Country: country}}
}

func (c *StaticClient) Lookup(ctx context.Context, ip string) (Location, error) {
	return c.loc, nil
}
