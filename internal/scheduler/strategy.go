package scheduler

import (
	"fmt"

	"github.com/hpungsan/hira/internal/errors"
)

// Strategy names a selection rule.
type Strategy string

const (
	// StrategyFrontBiased draws a random index skewed toward weak cards.
	StrategyFrontBiased Strategy = "front-biased"

	// StrategyGreedy always picks the card whose correct answer would raise
	// importance-weighted mastery the most. It never revisits mastered cards,
	// so it is kept for comparison only.
	StrategyGreedy Strategy = "greedy"
)

// ParseStrategy validates a strategy name. The empty string selects the default.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyFrontBiased:
		return StrategyFrontBiased, nil
	case StrategyGreedy:
		return StrategyGreedy, nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("unknown strategy %q (want %s or %s)",
			s, StrategyFrontBiased, StrategyGreedy))
	}
}

// selectGreedy picks the maximiser of importance × (assumed-success mastery − mastery).
// Candidates are visited in shuffled order so ties are broken fairly.
func (s *Scheduler) selectGreedy() Draw {
	order := s.rng.Perm(len(s.items))

	best := -1
	bestScore := -1.0
	for _, idx := range order {
		it := s.items[idx]
		if len(s.items) > 1 && !s.allowRepeats && it.ID() == s.last {
			continue
		}
		score := it.Importance() * (it.MasteryWithAssumedSuccess() - it.Mastery())
		if score > bestScore {
			best = idx
			bestScore = score
		}
	}

	return Draw{Index: best, ItemID: s.items[best].ID()}
}
