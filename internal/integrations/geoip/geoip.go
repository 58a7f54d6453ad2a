package geoip

import (
	"context"
	"fmt"
)

// Location is a coarse, human-readable place for a scan. Coordinates are
// present only when the provider reports them.
type Location struct {
	City      string
	Region    string
	Country   string
	Latitude  *float64
	Longitude *float64
}

func (l Location) String() string {
	return fmt.Sprintf("%s, %s, %s", l.City, l.Region, l.Country)
}

var (
	localLocation   = Location{City: "Local Network", Region: "Local Area", Country: "Local"}
	unknownLocation = Location{City: "Unknown City", Region: "Unknown Region", Country: "Unknown Country"}
)

// Client looks up a location for a public IP address.
type Client interface {
	Lookup(ctx context.Context, ip string) (Location, error)
}
