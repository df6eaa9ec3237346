package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/geoshield/geoshield/internal/analytics"
	"github.com/geoshield/geoshield/internal/metrics"
)

// OfflineGenerator builds a deterministic plain-text summary from the
// snapshot. It never fails and needs no credentials.
type OfflineGenerator struct{}

// NewOfflineGenerator creates the offline generator
func NewOfflineGenerator() *OfflineGenerator {
	return &OfflineGenerator{}
}

// Mode identifies this generator as offline
func (g *OfflineGenerator) Mode() string {
	return "offline"
}

// Answer summarizes the snapshot: totals, level split, security score,
// top countries and a canned posture comment by score band.
func (g *OfflineGenerator) Answer(ctx context.Context, question string, snapshot *analytics.Snapshot) (string, error) {
	start := time.Now()

	var b strings.Builder
	fmt.Fprintf(&b, "Analytics summary: %d login attempts recorded (%d high, %d medium, %d low risk).",
		snapshot.TotalAttempts, snapshot.High, snapshot.Medium, snapshot.Low)

	if snapshot.NotMeCount > 0 {
		fmt.Fprintf(&b, " %d attempts were disowned by the user.", snapshot.NotMeCount)
	}

	fmt.Fprintf(&b, " Security score: %.1f/10.", snapshot.SecurityScore)

	if top := topCountries(snapshot, 3); len(top) > 0 {
		fmt.Fprintf(&b, " Most active countries: %s.", strings.Join(top, ", "))
	}

	b.WriteString(" " + postureComment(snapshot.SecurityScore))

	metrics.RecordAssistantRequest("offline", "success", time.Since(start))
	return b.String(), nil
}

// topCountries returns up to n country names ordered by attempt volume
func topCountries(snapshot *analytics.Snapshot, n int) []string {
	type entry struct {
		country string
		total   int
	}
	entries := make([]entry, 0, len(snapshot.CountryStats))
	for country, stat := range snapshot.CountryStats {
		entries = append(entries, entry{country, stat.Total})
	}
	// Selection sort keeps ties deterministic by name
	for i := 0; i < len(entries); i++ {
		best := i
		for j := i + 1; j < len(entries); j++ {
			if entries[j].total > entries[best].total ||
				(entries[j].total == entries[best].total && entries[j].country < entries[best].country) {
				best = j
			}
		}
		entries[i], entries[best] = entries[best], entries[i]
	}

	if len(entries) > n {
		entries = entries[:n]
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, fmt.Sprintf("%s (%d)", e.country, e.total))
	}
	return names
}

// postureComment maps the security score to a canned risk assessment
func postureComment(score float64) string {
	switch {
	case score >= 8:
		return "Overall posture is healthy; no immediate action required."
	case score >= 5:
		return "Posture is degraded; review recent medium and high risk attempts."
	default:
		return "Posture is poor; investigate high-risk attempts and consider tightening risk weights."
	}
}
