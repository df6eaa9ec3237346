package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Default upstream endpoints. Overridable in Config for tests.
const (
	defaultGeoBaseURL = "http://ip-api.com"
	defaultVTBaseURL  = "https://www.virustotal.com"
	defaultOTXBaseURL = "https://otx.alienvault.com"
)

// maxPulseTags caps the distinct tags collected across all pulses
const maxPulseTags = 10

// sources issues the three upstream sub-lookups. Each lookup returns
// its sub-result plus an error; the caller decides how to degrade.
type sources struct {
	client     *http.Client
	logger     *zap.Logger
	geoBaseURL string
	vtBaseURL  string
	otxBaseURL string
	vtKey      string
	otxKey     string
}

func newSources(cfg Config, logger *zap.Logger) *sources {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	s := &sources{
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		geoBaseURL: cfg.GeoBaseURL,
		vtBaseURL:  cfg.VTBaseURL,
		otxBaseURL: cfg.OTXBaseURL,
		vtKey:      cfg.VTAPIKey,
		otxKey:     cfg.OTXAPIKey,
	}
	if s.geoBaseURL == "" {
		s.geoBaseURL = defaultGeoBaseURL
	}
	if s.vtBaseURL == "" {
		s.vtBaseURL = defaultVTBaseURL
	}
	if s.otxBaseURL == "" {
		s.otxBaseURL = defaultOTXBaseURL
	}
	return s
}

// lookupGeo queries ip-api.com (no credential required)
func (s *sources) lookupGeo(ctx context.Context, ip string) (GeoInfo, error) {
	url := fmt.Sprintf("%s/json/%s?fields=status,country,countryCode,city,regionName,lat,lon,isp,org,proxy,hosting,query", s.geoBaseURL, ip)

	body, err := s.get(ctx, url, nil)
	if err != nil {
		return GeoInfo{}, err
	}

	var apiResponse struct {
		Status      string  `json:"status"`
		Country     string  `json:"country"`
		CountryCode string  `json:"countryCode"`
		City        string  `json:"city"`
		Region      string  `json:"regionName"`
		Lat         float64 `json:"lat"`
		Lon         float64 `json:"lon"`
		ISP         string  `json:"isp"`
		Org         string  `json:"org"`
		Proxy       bool    `json:"proxy"`
		Hosting     bool    `json:"hosting"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return GeoInfo{}, err
	}
	if apiResponse.Status != "success" {
		return GeoInfo{}, fmt.Errorf("ip-api returned status: %s", apiResponse.Status)
	}

	return GeoInfo{
		Available:   true,
		Country:     apiResponse.Country,
		CountryCode: apiResponse.CountryCode,
		City:        apiResponse.City,
		Region:      apiResponse.Region,
		Latitude:    apiResponse.Lat,
		Longitude:   apiResponse.Lon,
		ISP:         apiResponse.ISP,
		Org:         apiResponse.Org,
		Proxy:       apiResponse.Proxy,
		Hosting:     apiResponse.Hosting,
	}, nil
}

// lookupVT queries the VirusTotal v3 IP endpoint
func (s *sources) lookupVT(ctx context.Context, ip string) (ReputationInfo, error) {
	if s.vtKey == "" {
		return ReputationInfo{}, fmt.Errorf("virustotal api key not configured")
	}

	url := fmt.Sprintf("%s/api/v3/ip_addresses/%s", s.vtBaseURL, ip)
	body, err := s.get(ctx, url, map[string]string{"x-apikey": s.vtKey})
	if err != nil {
		return ReputationInfo{}, err
	}

	var apiResponse struct {
		Data struct {
			Attributes struct {
				Reputation        int `json:"reputation"`
				LastAnalysisStats struct {
					Malicious  int `json:"malicious"`
					Suspicious int `json:"suspicious"`
					Harmless   int `json:"harmless"`
					Undetected int `json:"undetected"`
				} `json:"last_analysis_stats"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return ReputationInfo{}, err
	}

	stats := apiResponse.Data.Attributes.LastAnalysisStats
	return ReputationInfo{
		Available:  true,
		Malicious:  stats.Malicious,
		Suspicious: stats.Suspicious,
		Harmless:   stats.Harmless,
		Undetected: stats.Undetected,
		Reputation: apiResponse.Data.Attributes.Reputation,
	}, nil
}

// lookupOTX queries the AlienVault OTX general indicator endpoint
func (s *sources) lookupOTX(ctx context.Context, ip string) (PulseInfo, error) {
	if s.otxKey == "" {
		return PulseInfo{}, fmt.Errorf("otx api key not configured")
	}

	url := fmt.Sprintf("%s/api/v1/indicators/IPv4/%s/general", s.otxBaseURL, ip)
	body, err := s.get(ctx, url, map[string]string{"X-OTX-API-KEY": s.otxKey})
	if err != nil {
		return PulseInfo{}, err
	}

	var apiResponse struct {
		PulseInfo struct {
			Count  int `json:"count"`
			Pulses []struct {
				Tags []string `json:"tags"`
			} `json:"pulses"`
		} `json:"pulse_info"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return PulseInfo{}, err
	}

	// Collect distinct tags across pulses, a handful is plenty
	seen := map[string]struct{}{}
	tags := []string{}
	for _, pulse := range apiResponse.PulseInfo.Pulses {
		if len(tags) >= maxPulseTags {
			break
		}
		for _, tag := range pulse.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
			if len(tags) >= maxPulseTags {
				break
			}
		}
	}

	return PulseInfo{
		Available:  true,
		PulseCount: apiResponse.PulseInfo.Count,
		Tags:       tags,
	}, nil
}

func (s *sources) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}
