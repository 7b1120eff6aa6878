package scheduler

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hpungsan/hira/internal/errors"
	"github.com/hpungsan/hira/internal/item"
)

// DefaultMaxRedraws bounds how often a draw that repeats the previous card
// is retried before falling back to a uniform pick among the other cards.
const DefaultMaxRedraws = 64

// biasExponent controls how strongly the draw favours the front of the deck.
const biasExponent = 6

// Draw describes the outcome of the most recent selection.
type Draw struct {
	Index   int // position of the selected item at selection time
	ItemID  int
	Redraws int  // draws rejected because they repeated the previous card
	Forced  bool // true if redraws ran out and the fallback pick was used
}

// Scheduler owns the ordered deck and the random generator that samples it.
// The deck stays roughly sorted by ascending mastery, and draws are skewed
// toward the front so weak cards come up often while every card keeps a
// nonzero chance. It is not safe for concurrent use.
type Scheduler struct {
	items        []*item.Item
	rng          *rand.Rand
	strategy     Strategy
	maxRedraws   int
	allowRepeats bool

	last     int // identity selected in the previous round, -1 before the first
	lastDraw Draw
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRand sets the random generator. Tests pass a seeded generator to make
// selection deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// WithStrategy sets the selection strategy. Default: StrategyFrontBiased.
func WithStrategy(strategy Strategy) Option {
	return func(s *Scheduler) { s.strategy = strategy }
}

// WithMaxRedraws sets the redraw bound. Values <= 0 use DefaultMaxRedraws.
func WithMaxRedraws(n int) Option {
	return func(s *Scheduler) { s.maxRedraws = n }
}

// WithAllowRepeats disables the no-immediate-repeat rule.
func WithAllowRepeats(allow bool) Option {
	return func(s *Scheduler) { s.allowRepeats = allow }
}

// New creates a Scheduler over items, in the given order.
// An empty deck or duplicate identities are rejected.
func New(items []*item.Item, opts ...Option) (*Scheduler, error) {
	if len(items) == 0 {
		return nil, errors.NewEmptyCorpus()
	}

	seen := make(map[int]bool, len(items))
	for _, it := range items {
		if it == nil {
			return nil, errors.NewInvalidRequest("deck contains a nil item")
		}
		if seen[it.ID()] {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("duplicate item id %d", it.ID()))
		}
		seen[it.ID()] = true
	}

	s := &Scheduler{
		items:    append([]*item.Item(nil), items...),
		strategy: StrategyFrontBiased,
		last:     -1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.maxRedraws <= 0 {
		s.maxRedraws = DefaultMaxRedraws
	}
	if _, err := ParseStrategy(string(s.strategy)); err != nil {
		return nil, err
	}

	return s, nil
}

// SelectNext picks the item to show this round.
func (s *Scheduler) SelectNext() *item.Item {
	var d Draw
	switch s.strategy {
	case StrategyGreedy:
		d = s.selectGreedy()
	default:
		d = s.selectFrontBiased()
	}

	s.lastDraw = d
	s.last = d.ItemID
	return s.items[d.Index]
}

// selectFrontBiased draws an index skewed toward the front of the deck and
// rejects draws that would repeat the previous card.
func (s *Scheduler) selectFrontBiased() Draw {
	m := len(s.items)
	idx := FrontBiasedIndex(s.rng.Float64(), m)
	d := Draw{Index: idx, ItemID: s.items[idx].ID()}

	if m == 1 || s.allowRepeats || s.last < 0 {
		return d
	}

	for s.items[d.Index].ID() == s.last {
		if d.Redraws == s.maxRedraws {
			return s.fallback(d)
		}
		d.Redraws++
		d.Index = FrontBiasedIndex(s.rng.Float64(), m)
	}
	d.ItemID = s.items[d.Index].ID()
	return d
}

// fallback picks uniformly among every position except the previous card's.
func (s *Scheduler) fallback(d Draw) Draw {
	pos := s.Position(s.last)
	k := s.rng.Intn(len(s.items) - 1)
	if pos >= 0 && k >= pos {
		k++
	}
	d.Index = k
	d.ItemID = s.items[k].ID()
	d.Forced = true
	return d
}

// FrontBiasedIndex maps r in [0, 1) onto [0, m) as floor((m+1)^(r^6) - 1).
// Small indices are far more likely than large ones; every index stays reachable.
func FrontBiasedIndex(r float64, m int) int {
	x := math.Pow(r, biasExponent)
	idx := int(math.Floor(math.Pow(float64(m+1), x) - 1))
	if idx < 0 {
		return 0
	}
	if idx >= m {
		return m - 1
	}
	return idx
}

// Reposition moves it after an answer and returns its old and new positions.
//
// A correct answer advances the item past the following cards whose mastery
// does not exceed its own, stopping just before the first stronger card; if no
// later card is stronger it advances by one. A wrong answer moves it to the front.
//
// It panics if it is not in the deck.
func (s *Scheduler) Reposition(it *item.Item, correct bool) (from, to int) {
	from = s.Position(it.ID())
	if from < 0 {
		panic(fmt.Sprintf("scheduler: item %d is not in the deck", it.ID()))
	}

	if !correct {
		s.move(from, 0)
		return from, 0
	}

	mastery := it.Mastery()
	to = -1
	for j := from + 1; j < len(s.items); j++ {
		if s.items[j].Mastery() > mastery {
			to = j - 1
			break
		}
	}
	if to < 0 {
		to = min(from+1, len(s.items)-1)
	}

	s.move(from, to)
	return from, to
}

// move relocates the item at from to index to, shifting the items between.
func (s *Scheduler) move(from, to int) {
	if from == to {
		return
	}
	it := s.items[from]
	if from < to {
		copy(s.items[from:to], s.items[from+1:to+1])
	} else {
		copy(s.items[to+1:from+1], s.items[to:from])
	}
	s.items[to] = it
}

// Position returns the current index of the item with the given identity, or -1.
func (s *Scheduler) Position(id int) int {
	for i, it := range s.items {
		if it.ID() == id {
			return i
		}
	}
	return -1
}

// Items returns the deck in its current order. The slice is a copy; the
// items are shared.
func (s *Scheduler) Items() []*item.Item {
	return append([]*item.Item(nil), s.items...)
}

// Len returns the number of items in the deck.
func (s *Scheduler) Len() int {
	return len(s.items)
}

// LastSelected returns the identity chosen by the previous SelectNext, or -1.
func (s *Scheduler) LastSelected() int {
	return s.last
}

// LastDraw returns details of the previous SelectNext.
func (s *Scheduler) LastDraw() Draw {
	return s.lastDraw
}

// Strategy returns the selection strategy in use.
func (s *Scheduler) Strategy() Strategy {
	return s.strategy
}
