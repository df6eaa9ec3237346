// Package intel provides IP threat intelligence: geolocation, reputation
// and pulse-feed lookups aggregated behind a single gateway.
package intel

import (
	"context"
	"net/netip"
	"time"
)

// GeoInfo is the geolocation sub-result (ip-api.com)
type GeoInfo struct {
	Available   bool    `json:"available"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"countryCode,omitempty"`
	City        string  `json:"city,omitempty"`
	Region      string  `json:"region,omitempty"`
	Latitude    float64 `json:"lat,omitempty"`
	Longitude   float64 `json:"lon,omitempty"`
	ISP         string  `json:"isp,omitempty"`
	Org         string  `json:"org,omitempty"`
	Proxy       bool    `json:"proxy"`
	Hosting     bool    `json:"hosting"`
}

// ReputationInfo is the reputation sub-result (VirusTotal)
type ReputationInfo struct {
	Available  bool `json:"available"`
	Malicious  int  `json:"malicious"`
	Suspicious int  `json:"suspicious"`
	Harmless   int  `json:"harmless"`
	Undetected int  `json:"undetected"`
	Reputation int  `json:"reputation"`
}

// PulseInfo is the pulse-feed sub-result (AlienVault OTX)
type PulseInfo struct {
	Available  bool     `json:"available"`
	PulseCount int      `json:"pulseCount"`
	Tags       []string `json:"tags,omitempty"`
}

// Result aggregates the three independent sub-lookups for one IP
type Result struct {
	IP         string         `json:"ip"`
	Geo        GeoInfo        `json:"geo"`
	Reputation ReputationInfo `json:"vt"`
	Pulses     PulseInfo      `json:"otx"`
	Degraded   bool           `json:"degraded"`
	FromMock   bool           `json:"fromMock,omitempty"`
	LookupTime time.Time      `json:"lookupTime"`
}

// Gateway resolves threat intelligence for an IPv4 address
type Gateway interface {
	Lookup(ctx context.Context, ip string) (*Result, error)
	Status() Status
}

// Status reports which sub-sources are usable
type Status struct {
	Mode string `json:"mode"` // "live" or "offline"
	Geo  bool   `json:"geo"`
	VT   bool   `json:"vt"`
	OTX  bool   `json:"otx"`
}

// ValidIPv4 reports whether ip is a plain dotted-quad IPv4 address
func ValidIPv4(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	return err == nil && addr.Is4()
}
