package ops

import (
	"github.com/hpungsan/hira/internal/corpus"
)

// CheckInput contains parameters for the Check operation.
type CheckInput struct {
	Path string // empty checks the built-in deck
}

// CheckOutput describes a corpus that loaded cleanly.
type CheckOutput struct {
	Source     string  `json:"source"`
	Cards      int     `json:"cards"`
	Importance float64 `json:"importance"`
	Duplicates int     `json:"duplicate_prompts"`
}

// Check loads a corpus without starting a session.
// Any parse failure is returned as the loader reports it.
func Check(input CheckInput) (*CheckOutput, error) {
	items, err := corpus.Load(input.Path)
	if err != nil {
		return nil, err
	}

	source := input.Path
	if source == "" {
		source = corpus.BuiltinName
	}

	seen := make(map[string]bool, len(items))
	dups := 0
	for _, it := range items {
		if seen[it.Prompt()] {
			dups++
		}
		seen[it.Prompt()] = true
	}

	return &CheckOutput{
		Source:     source,
		Cards:      len(items),
		Importance: items[0].Importance(),
		Duplicates: dups,
	}, nil
}
