package intel

import (
	"context"
	"time"

	apperrors "github.com/geoshield/geoshield/internal/common/errors"
)

// MockGateway serves canned intel profiles for offline demo runs. No
// network access, no credentials, fully deterministic.
type MockGateway struct{}

// NewMockGateway creates the offline gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Status reports all sub-sources as served from canned data
func (m *MockGateway) Status() Status {
	return Status{Mode: "offline", Geo: true, VT: true, OTX: true}
}

// Canned profiles for the demo scenario IPs. Anything else gets a
// generic clean profile.
var mockProfiles = map[string]Result{
	"185.21.34.90": {
		IP: "185.21.34.90",
		Geo: GeoInfo{
			Available: true, Country: "Russia", CountryCode: "RU",
			City: "Moscow", Region: "Moscow", Latitude: 55.7558, Longitude: 37.6173,
			ISP: "PinSPb Hosting", Org: "PIN-AS", Proxy: true, Hosting: true,
		},
		Reputation: ReputationInfo{
			Available: true, Malicious: 14, Suspicious: 3, Harmless: 48, Undetected: 25, Reputation: -42,
		},
		Pulses: PulseInfo{
			Available: true, PulseCount: 23,
			Tags: []string{"botnet", "bruteforce", "ssh"},
		},
	},
	"156.155.22.40": {
		IP: "156.155.22.40",
		Geo: GeoInfo{
			Available: true, Country: "South Africa", CountryCode: "ZA",
			City: "Cape Town", Region: "Western Cape", Latitude: -33.9249, Longitude: 18.4241,
			ISP: "Telkom SA", Org: "TelkomInternet",
		},
		Reputation: ReputationInfo{
			Available: true, Malicious: 2, Suspicious: 1, Harmless: 61, Undetected: 26, Reputation: -3,
		},
		Pulses: PulseInfo{
			Available: true, PulseCount: 4,
			Tags: []string{"scanner"},
		},
	},
	"102.44.19.80": {
		IP: "102.44.19.80",
		Geo: GeoInfo{
			Available: true, Country: "Egypt", CountryCode: "EG",
			City: "Cairo", Region: "Cairo", Latitude: 30.0444, Longitude: 31.2357,
			ISP: "TE Data", Org: "TE-AS",
		},
		Reputation: ReputationInfo{
			Available: true, Malicious: 0, Suspicious: 0, Harmless: 70, Undetected: 20, Reputation: 0,
		},
		Pulses: PulseInfo{
			Available: true, PulseCount: 0,
		},
	},
}

// Lookup returns the canned profile for ip, or a generic clean profile
func (m *MockGateway) Lookup(ctx context.Context, ip string) (*Result, error) {
	if !ValidIPv4(ip) {
		return nil, apperrors.ValidationError("a valid IPv4 address is required")
	}

	if profile, ok := mockProfiles[ip]; ok {
		result := profile
		result.FromMock = true
		result.LookupTime = time.Now()
		return &result, nil
	}

	return &Result{
		IP: ip,
		Geo: GeoInfo{
			Available: true, Country: "Unknown", CountryCode: "??",
		},
		Reputation: ReputationInfo{Available: true, Harmless: 60, Undetected: 30},
		Pulses:     PulseInfo{Available: true},
		FromMock:   true,
		LookupTime: time.Now(),
	}, nil
}
