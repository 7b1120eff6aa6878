package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/hira/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []db.Session `json:"items"`
	Pagination Pagination   `json:"pagination"`
	Sort       string       `json:"sort"`
}

// List retrieves journal sessions, newest first, with pagination.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	sessions, total, err := db.ListSessions(ctx, database, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if sessions == nil {
		sessions = []db.Session{}
	}

	return &ListOutput{
		Items: sessions,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(sessions) < total,
			Total:   total,
		},
		Sort: "started_at_desc",
	}, nil
}
