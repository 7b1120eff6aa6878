package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/hira/internal/db"
)

// StatsInput contains parameters for the Stats operation.
type StatsInput struct {
	SessionID string // optional; empty aggregates every session
}

// StatsOutput contains per-card journal aggregates.
type StatsOutput struct {
	SessionID string        `json:"session_id,omitempty"`
	Items     []db.ItemStat `json:"items"`
	Attempts  int           `json:"attempts"`
	Correct   int           `json:"correct"`
	// Accuracy is Correct over answered (non first exposure) rounds.
	Accuracy float64 `json:"accuracy"`
}

// Stats aggregates journal rounds per card.
func Stats(ctx context.Context, database *sql.DB, input StatsInput) (*StatsOutput, error) {
	sessionID := strings.TrimSpace(input.SessionID)

	items, err := db.ItemStats(ctx, database, sessionID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.ItemStat{}
	}

	out := &StatsOutput{SessionID: sessionID, Items: items}
	answered := 0
	for _, it := range items {
		out.Attempts += it.Attempts
		out.Correct += it.Correct
		answered += it.Attempts - it.FirstExposures
	}
	if answered > 0 {
		out.Accuracy = float64(out.Correct) / float64(answered)
	}

	return out, nil
}
