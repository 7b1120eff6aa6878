package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/hira/internal/errors"
)

// Session is one run of the drill.
type Session struct {
	ID         string `json:"id"`
	CorpusPath string `json:"corpus_path"`
	ItemCount  int    `json:"item_count"`
	Strategy   string `json:"strategy"`
	Seed       int64  `json:"seed"`
	StartedAt  int64  `json:"started_at"`
	EndedAt    *int64 `json:"ended_at,omitempty"`

	// Aggregates filled by ListSessions and GetSession.
	Rounds  int `json:"rounds"`
	Correct int `json:"correct"`
}

// Round is one answered card.
type Round struct {
	SessionID      string  `json:"session_id"`
	Seq            int     `json:"seq"`
	ItemID         int     `json:"item_id"`
	Prompt         string  `json:"prompt"`
	Answer         string  `json:"answer"`
	Correct        bool    `json:"correct"`
	FirstExposure  bool    `json:"first_exposure"`
	MasteryAfter   float64 `json:"mastery_after"`
	TotalMastery   float64 `json:"total_mastery"`
	PositionBefore int     `json:"position_before"`
	PositionAfter  int     `json:"position_after"`
	AnsweredAt     int64   `json:"answered_at"`
}

// ItemStat aggregates the rounds of one card. Item ids are only unique
// within a corpus, so a card is keyed by corpus path and item id.
type ItemStat struct {
	CorpusPath     string  `json:"corpus_path"`
	ItemID         int     `json:"item_id"`
	Prompt         string  `json:"prompt"`
	Attempts       int     `json:"attempts"`
	Correct        int     `json:"correct"`
	FirstExposures int     `json:"first_exposures"`
	LastMastery    float64 `json:"last_mastery"`
}

// NewID generates a new ULID.
func NewID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// StartSession inserts s. An empty ID is replaced with a new ULID and a zero
// StartedAt with the current time.
func StartSession(ctx context.Context, db *sql.DB, s *Session) error {
	if s.ID == "" {
		id, err := NewID()
		if err != nil {
			return errors.NewInternal(err)
		}
		s.ID = id
	}
	if s.StartedAt == 0 {
		s.StartedAt = time.Now().Unix()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (id, corpus_path, item_count, strategy, seed, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`, s.ID, s.CorpusPath, s.ItemCount, s.Strategy, s.Seed, s.StartedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// EndSession stamps the session's end time.
func EndSession(ctx context.Context, db *sql.DB, id string, endedAt int64) error {
	result, err := db.ExecContext(ctx, `UPDATE sessions SET ended_at = ? WHERE id = ?`, endedAt, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("session", id)
	}
	return nil
}

// InsertRound appends a round to its session.
func InsertRound(ctx context.Context, db *sql.DB, r Round) error {
	if r.AnsweredAt == 0 {
		r.AnsweredAt = time.Now().Unix()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO rounds (
			session_id, seq, item_id, prompt, answer, correct, first_exposure,
			mastery_after, total_mastery, position_before, position_after, answered_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.SessionID, r.Seq, r.ItemID, r.Prompt, r.Answer, boolToInt(r.Correct), boolToInt(r.FirstExposure),
		r.MasteryAfter, r.TotalMastery, r.PositionBefore, r.PositionAfter, r.AnsweredAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

const sessionColumns = `
	s.id, s.corpus_path, s.item_count, s.strategy, s.seed, s.started_at, s.ended_at,
	COUNT(r.seq), COALESCE(SUM(r.correct), 0)
`

// GetSession retrieves a session with its round aggregates.
func GetSession(ctx context.Context, db *sql.DB, id string) (*Session, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions s
		LEFT JOIN rounds r ON r.session_id = s.id
		WHERE s.id = ?
		GROUP BY s.id
	`, id)

	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("session", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListSessions returns sessions newest first, with the total session count.
func ListSessions(ctx context.Context, db *sql.DB, limit, offset int) ([]Session, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions s
		LEFT JOIN rounds r ON r.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return sessions, total, nil
}

// ItemStats aggregates rounds per card, ordered by corpus path and item id.
// An empty sessionID aggregates across every session.
func ItemStats(ctx context.Context, db *sql.DB, sessionID string) ([]ItemStat, error) {
	if sessionID != "" {
		if _, err := GetSession(ctx, db, sessionID); err != nil {
			return nil, err
		}
	}

	rows, err := db.QueryContext(ctx, `
		SELECT s.corpus_path, r.item_id, MAX(r.prompt), COUNT(*), SUM(r.correct), SUM(r.first_exposure),
			(SELECT l.mastery_after FROM rounds l
			 JOIN sessions ls ON ls.id = l.session_id
			 WHERE ls.corpus_path = s.corpus_path AND l.item_id = r.item_id
			   AND (? = '' OR l.session_id = ?)
			 ORDER BY l.answered_at DESC, l.session_id DESC, l.seq DESC LIMIT 1)
		FROM rounds r
		JOIN sessions s ON s.id = r.session_id
		WHERE ? = '' OR r.session_id = ?
		GROUP BY s.corpus_path, r.item_id
		ORDER BY s.corpus_path, r.item_id
	`, sessionID, sessionID, sessionID, sessionID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var stats []ItemStat
	for rows.Next() {
		var st ItemStat
		if err := rows.Scan(&st.CorpusPath, &st.ItemID, &st.Prompt, &st.Attempts, &st.Correct, &st.FirstExposures, &st.LastMastery); err != nil {
			return nil, errors.NewInternal(err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return stats, nil
}

// StreamRounds returns rounds in play order for export. An empty sessionID
// streams every session, oldest first. The caller must close the rows.
func StreamRounds(ctx context.Context, db *sql.DB, sessionID string) (*sql.Rows, error) {
	if sessionID != "" {
		if _, err := GetSession(ctx, db, sessionID); err != nil {
			return nil, err
		}
	}

	rows, err := db.QueryContext(ctx, `
		SELECT r.session_id, r.seq, r.item_id, r.prompt, r.answer, r.correct, r.first_exposure,
			r.mastery_after, r.total_mastery, r.position_before, r.position_after, r.answered_at
		FROM rounds r
		JOIN sessions s ON s.id = r.session_id
		WHERE ? = '' OR r.session_id = ?
		ORDER BY s.started_at, s.id, r.seq
	`, sessionID, sessionID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanRound scans one row produced by StreamRounds.
func ScanRound(rows *sql.Rows) (*Round, error) {
	var r Round
	var correct, first int
	if err := rows.Scan(
		&r.SessionID, &r.Seq, &r.ItemID, &r.Prompt, &r.Answer, &correct, &first,
		&r.MasteryAfter, &r.TotalMastery, &r.PositionBefore, &r.PositionAfter, &r.AnsweredAt,
	); err != nil {
		return nil, err
	}
	r.Correct = correct != 0
	r.FirstExposure = first != 0
	return &r, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	var endedAt sql.NullInt64
	if err := row.Scan(
		&s.ID, &s.CorpusPath, &s.ItemCount, &s.Strategy, &s.Seed, &s.StartedAt, &endedAt,
		&s.Rounds, &s.Correct,
	); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		s.EndedAt = &endedAt.Int64
	}
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
