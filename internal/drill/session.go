package drill

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/hpungsan/hira/internal/errors"
	"github.com/hpungsan/hira/internal/item"
	"github.com/hpungsan/hira/internal/report"
	"github.com/hpungsan/hira/internal/scheduler"
)

// Prompt is what the user is asked in a round.
type Prompt struct {
	Round         int    `json:"round"`
	ItemID        int    `json:"item_id"`
	Prompt        string `json:"prompt"`
	FirstExposure bool   `json:"first_exposure"`
	// Response is only set on first exposure, when the card is shown rather than asked.
	Response string `json:"response,omitempty"`
	Position int    `json:"position"`
	Redraws  int    `json:"redraws"`
	Forced   bool   `json:"forced,omitempty"`
}

// Feedback is the result of answering the pending prompt.
type Feedback struct {
	Round         int     `json:"round"`
	ItemID        int     `json:"item_id"`
	Prompt        string  `json:"prompt"`
	Answer        string  `json:"answer"`
	Expected      string  `json:"expected"`
	Correct       bool    `json:"correct"`
	FirstExposure bool    `json:"first_exposure"`
	Mastery       float64 `json:"mastery"`
	TotalMastery  float64 `json:"total_mastery"`
	From          int     `json:"from"`
	To            int     `json:"to"`
}

// Journal persists finished rounds. Implemented by db.Journal.
type Journal interface {
	RecordRound(ctx context.Context, fb Feedback) error
}

// Recorder observes finished rounds. Implemented by metrics.Metrics.
type Recorder interface {
	ObserveRound(p Prompt, fb Feedback)
}

// Options configures a Session. The zero value is usable.
type Options struct {
	Strategy     scheduler.Strategy
	Seed         int64      // 0 seeds from the clock
	Rand         *rand.Rand // overrides Seed when set
	MaxRedraws   int
	AllowRepeats bool

	Journal  Journal
	Recorder Recorder
	Logger   *slog.Logger
}

// Session owns one scheduler and at most one pending round.
// It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	sched   *scheduler.Scheduler
	pending *item.Item
	prompt  Prompt

	rounds  int
	correct int

	journal  Journal
	recorder Recorder
	logger   *slog.Logger
}

// NewSession builds a session over items in the given order.
func NewSession(items []*item.Item, opts Options) (*Session, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	strategy, err := scheduler.ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(seed))
	}

	sched, err := scheduler.New(items,
		scheduler.WithRand(rng),
		scheduler.WithStrategy(strategy),
		scheduler.WithMaxRedraws(opts.MaxRedraws),
		scheduler.WithAllowRepeats(opts.AllowRepeats),
	)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		sched:    sched,
		journal:  opts.Journal,
		recorder: opts.Recorder,
		logger:   logger,
	}, nil
}

// Next returns the pending prompt, selecting a new card if no round is open.
func (s *Session) Next() Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return s.prompt
	}

	it := s.sched.SelectNext()
	d := s.sched.LastDraw()

	p := Prompt{
		Round:         s.rounds + 1,
		ItemID:        it.ID(),
		Prompt:        it.Prompt(),
		FirstExposure: it.FirstExposure(),
		Position:      d.Index,
		Redraws:       d.Redraws,
		Forced:        d.Forced,
	}
	if p.FirstExposure {
		p.Response = it.Response()
	}

	s.pending = it
	s.prompt = p

	s.logger.Debug("selected card",
		"round", p.Round,
		"item", it.ID(),
		"position", d.Index,
		"redraws", d.Redraws,
		"forced", d.Forced,
		"strategy", s.sched.Strategy(),
	)
	return p
}

// Pending returns the open prompt, if any.
func (s *Session) Pending() (Prompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Prompt{}, false
	}
	return s.prompt, true
}

// Answer closes the pending round with raw as the user's response.
// On first exposure raw is ignored.
func (s *Session) Answer(ctx context.Context, raw string) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return Feedback{}, errors.NewNoActiveRound()
	}

	it, p := s.pending, s.prompt
	first := it.FirstExposure()
	correct := it.RecordOutcome(it.Check(raw))
	from, to := s.sched.Reposition(it, correct)

	s.pending = nil
	s.rounds++
	if correct {
		s.correct++
	}

	fb := Feedback{
		Round:         p.Round,
		ItemID:        it.ID(),
		Prompt:        it.Prompt(),
		Answer:        raw,
		Expected:      it.Response(),
		Correct:       correct,
		FirstExposure: first,
		Mastery:       it.Mastery(),
		TotalMastery:  report.TotalMastery(s.sched.Items()),
		From:          from,
		To:            to,
	}

	s.logger.Debug("answered card",
		"round", fb.Round,
		"item", fb.ItemID,
		"correct", fb.Correct,
		"first_exposure", fb.FirstExposure,
		"from", from,
		"to", to,
		"history", it.History().String(),
	)

	if s.recorder != nil {
		s.recorder.ObserveRound(p, fb)
	}
	if s.journal != nil {
		if err := s.journal.RecordRound(ctx, fb); err != nil {
			s.logger.Warn("journal write failed", "round", fb.Round, "error", err)
		}
	}

	return fb, nil
}

// Progress returns a snapshot of the deck in scheduling order.
func (s *Session) Progress() report.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return report.Build(s.sched.Items(), s.rounds, s.correct)
}

// Rounds returns the number of answered rounds.
func (s *Session) Rounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rounds
}

// Strategy returns the selection strategy in use.
func (s *Session) Strategy() scheduler.Strategy {
	return s.sched.Strategy()
}

// Len returns the deck size.
func (s *Session) Len() int {
	return s.sched.Len()
}
