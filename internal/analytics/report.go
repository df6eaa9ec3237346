package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/geoshield/geoshield/internal/risk"
)

// MaxFilteredAttempts caps the filtered attempt listing.
const MaxFilteredAttempts = 200

// activeAlertWindow is how long a high-risk attempt keeps the alert
// banner active.
const activeAlertWindow = 3 * time.Hour

// Summary is the dashboard headline view of a snapshot
type Summary struct {
	TotalAttempts int       `json:"totalAttempts"`
	Low           int       `json:"low"`
	Medium        int       `json:"medium"`
	High          int       `json:"high"`
	NotMeCount    int       `json:"notMeCount"`
	SecurityScore float64   `json:"securityScore"`
	LastUpdated   time.Time `json:"lastUpdated"`

	LastHighAttempt *Attempt `json:"lastHighAttempt,omitempty"`
	DaysSinceHigh   int      `json:"daysSinceHigh"`
	ActiveAlert     bool     `json:"activeAlert"`
	AlertMessage    string   `json:"alertMessage,omitempty"`
}

// CountryRanking is one row of the country intensity table
type CountryRanking struct {
	Country   string  `json:"country"`
	Total     int     `json:"total"`
	Low       int     `json:"low"`
	Medium    int     `json:"medium"`
	High      int     `json:"high"`
	Intensity float64 `json:"intensity"`
}

// IPThreat is the per-IP rollup row
type IPThreat struct {
	IP            string     `json:"ip"`
	Count         int        `json:"count"`
	LastThreatTag string     `json:"lastThreatTag,omitempty"`
	MaxLevel      risk.Level `json:"maxLevel"`
}

// ThreatReport aggregates threat-related attempts by source IP
type ThreatReport struct {
	ThreatRelatedTotal int        `json:"threatRelatedTotal"`
	IPs                []IPThreat `json:"ips"`
}

// AttemptFilter holds the optional, conjunctive listing filters
type AttemptFilter struct {
	Level     string
	Country   string
	NotMeOnly bool
}

// Reporter computes read-side views over a snapshot. It never mutates
// the snapshot it is given.
type Reporter struct {
	now func() time.Time
}

// NewReporter creates a Reporter
func NewReporter() *Reporter {
	return &Reporter{now: time.Now}
}

// Summarize builds the headline summary, including the active-alert
// banner for a high-risk attempt seen within the last three hours.
func (r *Reporter) Summarize(s *Snapshot) Summary {
	summary := Summary{
		TotalAttempts: s.TotalAttempts,
		Low:           s.Low,
		Medium:        s.Medium,
		High:          s.High,
		NotMeCount:    s.NotMeCount,
		SecurityScore: s.SecurityScore,
		LastUpdated:   s.LastUpdated,
	}

	for i := range s.AttemptLog {
		if s.AttemptLog[i].Level == risk.LevelHigh {
			attempt := s.AttemptLog[i]
			summary.LastHighAttempt = &attempt

			elapsed := r.now().Sub(attempt.Timestamp)
			if elapsed < 0 {
				elapsed = 0
			}
			summary.DaysSinceHigh = int(elapsed.Hours() / 24)
			if elapsed <= activeAlertWindow {
				summary.ActiveAlert = true
				summary.AlertMessage = fmt.Sprintf("High-risk attempt detected %s from %s",
					relativeTime(elapsed), attempt.Country)
			}
			break
		}
	}

	return summary
}

// relativeTime renders an elapsed duration as a coarse human phrase
func relativeTime(elapsed time.Duration) string {
	switch {
	case elapsed < time.Minute:
		return "seconds ago"
	case elapsed < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(elapsed.Hours()/24))
	}
}

// RankCountries returns countries sorted by attempt volume with a map
// shading intensity derived from the busiest bucket.
func (r *Reporter) RankCountries(s *Snapshot) []CountryRanking {
	rankings := make([]CountryRanking, 0, len(s.CountryStats))
	maxTotal := 0
	for country, stat := range s.CountryStats {
		rankings = append(rankings, CountryRanking{
			Country: country,
			Total:   stat.Total,
			Low:     stat.Low,
			Medium:  stat.Medium,
			High:    stat.High,
		})
		if stat.Total > maxTotal {
			maxTotal = stat.Total
		}
	}

	for i := range rankings {
		if maxTotal > 0 {
			rankings[i].Intensity = 0.25 + 0.75*(float64(rankings[i].Total)/float64(maxTotal))
		} else {
			rankings[i].Intensity = 0.3
		}
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Total != rankings[j].Total {
			return rankings[i].Total > rankings[j].Total
		}
		return rankings[i].Country < rankings[j].Country
	})

	return rankings
}

// HourlyHistogram buckets attempts by local hour of day. Attempts with
// an unset timestamp are skipped.
func (r *Reporter) HourlyHistogram(s *Snapshot) [24]int {
	var hours [24]int
	for i := range s.AttemptLog {
		ts := s.AttemptLog[i].Timestamp
		if ts.IsZero() {
			continue
		}
		hours[ts.Local().Hour()]++
	}
	return hours
}

// ThreatRollup aggregates attempts by source IP. An attempt counts as
// threat-related when it carries a threat tag or a source IP.
func (r *Reporter) ThreatRollup(s *Snapshot) ThreatReport {
	byIP := make(map[string]*IPThreat)
	order := []string{}
	report := ThreatReport{IPs: []IPThreat{}}

	for i := range s.AttemptLog {
		attempt := &s.AttemptLog[i]
		if attempt.ThreatTag == "" && attempt.IP == "" {
			continue
		}
		report.ThreatRelatedTotal++

		if attempt.IP == "" {
			continue
		}
		entry, ok := byIP[attempt.IP]
		if !ok {
			entry = &IPThreat{IP: attempt.IP, MaxLevel: attempt.Level}
			byIP[attempt.IP] = entry
			order = append(order, attempt.IP)
		}
		entry.Count++
		// Log is newest-first, so keep the first tag we see
		if entry.LastThreatTag == "" && attempt.ThreatTag != "" {
			entry.LastThreatTag = attempt.ThreatTag
		}
		if attempt.Level.Rank() > entry.MaxLevel.Rank() {
			entry.MaxLevel = attempt.Level
		}
	}

	for _, ip := range order {
		report.IPs = append(report.IPs, *byIP[ip])
	}
	sort.SliceStable(report.IPs, func(i, j int) bool {
		return report.IPs[i].Count > report.IPs[j].Count
	})

	return report
}

// FilterAttempts applies the conjunctive filters and caps the result,
// preserving newest-first order.
func (r *Reporter) FilterAttempts(s *Snapshot, filter AttemptFilter) []Attempt {
	filtered := []Attempt{}
	for i := range s.AttemptLog {
		attempt := s.AttemptLog[i]
		if filter.Level != "" && attempt.Level.String() != filter.Level {
			continue
		}
		if filter.Country != "" && attempt.Country != filter.Country {
			continue
		}
		if filter.NotMeOnly && !attempt.NotMe {
			continue
		}
		filtered = append(filtered, attempt)
		if len(filtered) == MaxFilteredAttempts {
			break
		}
	}
	return filtered
}
