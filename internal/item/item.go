package item

import (
	"fmt"
	"strings"

	"github.com/hpungsan/hira/internal/history"
)

// Item is a single flashcard: a prompt, its expected response, a static
// importance weight, and the card's recent answer history.
type Item struct {
	id       int
	prompt   string
	response string

	// importance is how likely the prompt is to matter in practice.
	// Across a corpus the importances are intended to sum to 1.
	importance float64

	history history.History
}

// New creates an item with an empty history.
func New(id int, prompt, response string, importance float64) *Item {
	return &Item{
		id:         id,
		prompt:     prompt,
		response:   response,
		importance: importance,
	}
}

// NewWithHistory creates an item that starts from h instead of an empty history.
func NewWithHistory(id int, prompt, response string, importance float64, h history.History) *Item {
	it := New(id, prompt, response, importance)
	it.history = h
	return it
}

// ID returns the stable identity assigned at load time.
func (it *Item) ID() int { return it.id }

// Prompt returns the text shown to the user.
func (it *Item) Prompt() string { return it.prompt }

// Response returns the expected answer.
func (it *Item) Response() string { return it.response }

// Importance returns the static importance weight.
func (it *Item) Importance() float64 { return it.importance }

// History returns a copy of the item's answer history.
func (it *Item) History() history.History { return it.history }

// FirstExposure reports whether the item has never been shown.
func (it *Item) FirstExposure() bool { return it.history.Empty() }

// Mastery returns the recency-weighted probability that the next answer is correct.
func (it *Item) Mastery() float64 {
	return it.history.Mastery()
}

// MasteryWithAssumedSuccess returns what Mastery would be after one more
// correct answer. The item is not modified.
func (it *Item) MasteryWithAssumedSuccess() float64 {
	return it.history.WithPush(true).Mastery()
}

// Check reports whether raw, once trimmed, is exactly the expected response.
func (it *Item) Check(raw string) bool {
	return strings.TrimSpace(raw) == it.response
}

// RecordOutcome records the result of showing the item and returns whether
// the round counts as correct.
//
// On first exposure the card was only shown, not asked: true is recorded to
// mark it as seen, and false is returned so the card is scheduled again soon.
func (it *Item) RecordOutcome(correct bool) bool {
	if it.history.Empty() {
		it.history.Push(true)
		return false
	}
	it.history.Push(correct)
	return correct
}

// String implements fmt.Stringer for debugging.
func (it *Item) String() string {
	return fmt.Sprintf("%s -> %s, mastery: %d%%, p: %d%%",
		it.prompt, it.response, Percent(it.Mastery()), Percent(it.importance))
}

// Percent truncates a probability to a whole percentage.
func Percent(p float64) int {
	return int(p * 100)
}
