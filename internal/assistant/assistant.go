// Package assistant produces narrative answers about the analytics
// ledger, either via the OpenAI API or a deterministic offline summary.
package assistant

import (
	"context"

	"github.com/geoshield/geoshield/internal/analytics"
)

// Generator answers a free-form question about an analytics snapshot
type Generator interface {
	Answer(ctx context.Context, question string, snapshot *analytics.Snapshot) (string, error)
	Mode() string
}
