package history

import (
	"fmt"
	"math/bits"
)

// Capacity is the number of outcomes a History remembers.
const Capacity = 8

// History is a fixed-capacity record of boolean outcomes.
// Bit 0 of the raw byte is the most recent outcome; pushing shifts older
// outcomes toward bit 7 and the eighth-oldest falls off the end.
//
// The zero value is an empty history ("never attempted").
type History struct {
	data uint8
	n    uint8 // filled slots, saturates at Capacity
}

// FromBits returns a full history whose raw byte is b.
func FromBits(b uint8) History {
	return History{data: b, n: Capacity}
}

// Push records outcome as the most recent entry.
func (h *History) Push(outcome bool) {
	h.data <<= 1
	if outcome {
		h.data |= 1
	}
	if h.n < Capacity {
		h.n++
	}
}

// WithPush returns a copy of h with outcome pushed. h is not modified.
func (h History) WithPush(outcome bool) History {
	h.Push(outcome)
	return h
}

// Get returns the outcome at recency offset index (0 = most recent).
// It panics if index is outside [0, Capacity).
func (h History) Get(index int) bool {
	if index < 0 || index >= Capacity {
		panic(fmt.Sprintf("history: index %d out of range [0, %d)", index, Capacity))
	}
	return (h.data>>uint(index))&1 == 1
}

// Len returns the number of recorded outcomes, at most Capacity.
func (h History) Len() int {
	return int(h.n)
}

// Empty reports whether no outcome has been recorded.
func (h History) Empty() bool {
	return h.n == 0
}

// Bits returns the raw byte, most recent outcome in bit 0.
func (h History) Bits() uint8 {
	return h.data
}

// Mastery estimates how likely the next answer is to be correct, giving the
// most recent outcome weight 128/255 and halving the weight for each older one.
func (h History) Mastery() float64 {
	return float64(bits.Reverse8(h.data)) / 255
}

// Unweighted returns the fraction of true outcomes across all Capacity slots,
// ignoring order.
func (h History) Unweighted() float64 {
	return float64(bits.OnesCount8(h.data)) / Capacity
}

// String renders the history oldest first, e.g. "10110110".
func (h History) String() string {
	return fmt.Sprintf("%08b", h.data)
}
