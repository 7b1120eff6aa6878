package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/hira/internal/drill"
)

// Journal appends a session's rounds to the database. Nothing is ever read
// back into a running session.
type Journal struct {
	db        *sql.DB
	sessionID string
}

// NewJournal returns a Journal writing rounds for sessionID.
func NewJournal(db *sql.DB, sessionID string) *Journal {
	return &Journal{db: db, sessionID: sessionID}
}

// SessionID returns the session the journal writes to.
func (j *Journal) SessionID() string {
	return j.sessionID
}

// RecordRound implements drill.Journal.
func (j *Journal) RecordRound(ctx context.Context, fb drill.Feedback) error {
	return InsertRound(ctx, j.db, Round{
		SessionID:      j.sessionID,
		Seq:            fb.Round,
		ItemID:         fb.ItemID,
		Prompt:         fb.Prompt,
		Answer:         fb.Answer,
		Correct:        fb.Correct,
		FirstExposure:  fb.FirstExposure,
		MasteryAfter:   fb.Mastery,
		TotalMastery:   fb.TotalMastery,
		PositionBefore: fb.From,
		PositionAfter:  fb.To,
	})
}

var _ drill.Journal = (*Journal)(nil)
