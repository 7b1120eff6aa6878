package ops

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/hpungsan/hira/internal/corpus"
	"github.com/hpungsan/hira/internal/drill"
	"github.com/hpungsan/hira/internal/errors"
	"github.com/hpungsan/hira/internal/scheduler"
)

// DefaultLearnRate is how much of the remaining gap a simulated learner
// closes each time a card is shown.
const DefaultLearnRate = 0.3

// SimulateInput contains parameters for the Simulate operation.
type SimulateInput struct {
	Path         string // empty uses the built-in deck
	Rounds       int    // default: 1000, max: 1,000,000
	Seed         int64  // 0 seeds from the clock
	Strategy     string
	MaxRedraws   int
	AllowRepeats bool
	LearnRate    float64 // in (0, 1]; default 0.3
	Recorder     drill.Recorder
}

// ItemHits counts how often one card was selected.
type ItemHits struct {
	ID       int     `json:"id"`
	Prompt   string  `json:"prompt"`
	Selected int     `json:"selected"`
	Mastery  float64 `json:"mastery"`
}

// SimulateOutput summarises a simulated drill.
type SimulateOutput struct {
	Source       string     `json:"source"`
	Strategy     string     `json:"strategy"`
	Seed         int64      `json:"seed"`
	Rounds       int        `json:"rounds"`
	Correct      int        `json:"correct"`
	Repeats      int        `json:"immediate_repeats"`
	Forced       int        `json:"forced_selections"`
	TotalMastery float64    `json:"total_mastery"`
	Positions    []int      `json:"positions"`
	Items        []ItemHits `json:"items"`
}

// Simulate drills a corpus against a synthetic learner whose chance of
// answering a card rises each time the card is shown.
func Simulate(ctx context.Context, input SimulateInput) (*SimulateOutput, error) {
	rounds := input.Rounds
	if rounds <= 0 {
		rounds = DefaultSimulateRounds
	}
	if rounds > MaxSimulateRounds {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("rounds must be at most %d", MaxSimulateRounds))
	}

	rate := input.LearnRate
	if rate == 0 {
		rate = DefaultLearnRate
	}
	if !(rate > 0 && rate <= 1) {
		return nil, errors.NewInvalidRequest("learn rate must be in (0, 1]")
	}

	seed := input.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	items, err := corpus.Load(input.Path)
	if err != nil {
		return nil, err
	}

	s, err := drill.NewSession(items, drill.Options{
		Strategy:     scheduler.Strategy(input.Strategy),
		Seed:         seed,
		MaxRedraws:   input.MaxRedraws,
		AllowRepeats: input.AllowRepeats,
		Recorder:     input.Recorder,
	})
	if err != nil {
		return nil, err
	}

	learner := rand.New(rand.NewSource(seed + 1))
	skill := make([]float64, len(items))
	selected := make([]int, len(items))

	out := &SimulateOutput{
		Source:    input.Path,
		Strategy:  string(s.Strategy()),
		Seed:      seed,
		Positions: make([]int, len(items)),
	}
	if out.Source == "" {
		out.Source = corpus.BuiltinName
	}

	prev := -1
	for i := 0; i < rounds; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := s.Next()
		out.Positions[p.Position]++
		selected[p.ItemID]++
		if p.ItemID == prev {
			out.Repeats++
		}
		if p.Forced {
			out.Forced++
		}
		prev = p.ItemID

		answer := ""
		if learner.Float64() < skill[p.ItemID] {
			answer = items[p.ItemID].Response()
		}
		skill[p.ItemID] += rate * (1 - skill[p.ItemID])

		fb, err := s.Answer(ctx, answer)
		if err != nil {
			return nil, err
		}
		if fb.Correct {
			out.Correct++
		}
	}

	summary := s.Progress()
	out.Rounds = summary.Rounds
	out.TotalMastery = summary.TotalMastery

	out.Items = make([]ItemHits, len(items))
	for _, row := range summary.Rows {
		out.Items[row.ID] = ItemHits{
			ID:       row.ID,
			Prompt:   row.Prompt,
			Selected: selected[row.ID],
			Mastery:  row.Mastery,
		}
	}

	return out, nil
}
