package item

import (
	"testing"

	"github.com/hpungsan/hira/internal/history"
)

func TestRecordOutcome_FirstExposure(t *testing.T) {
	for _, correct := range []bool{true, false} {
		it := New(0, "a", "1", 1)

		if !it.FirstExposure() {
			t.Fatal("new item should be a first exposure")
		}
		if got := it.RecordOutcome(correct); got {
			t.Errorf("RecordOutcome(%v) on first exposure = true, want false", correct)
		}
		if it.FirstExposure() {
			t.Error("item should no longer be a first exposure")
		}
		if it.History().Len() != 1 || !it.History().Get(0) {
			t.Errorf("history = %s (len %d), want a single true", it.History(), it.History().Len())
		}
	}
}

func TestRecordOutcome_AfterFirstExposure(t *testing.T) {
	it := New(0, "a", "1", 1)
	it.RecordOutcome(false)

	if got := it.RecordOutcome(true); !got {
		t.Error("RecordOutcome(true) = false, want true")
	}
	if got := it.RecordOutcome(false); got {
		t.Error("RecordOutcome(false) = true, want false")
	}

	h := it.History()
	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}
	if h.Get(0) || !h.Get(1) || !h.Get(2) {
		t.Errorf("history = %s, want ...110", h)
	}
}

func TestMasteryWithAssumedSuccess(t *testing.T) {
	it := NewWithHistory(0, "a", "1", 0.5, history.FromBits(0b10110110))

	before := it.Mastery()
	if got, want := it.MasteryWithAssumedSuccess(), history.FromBits(0b01101101).Mastery(); got != want {
		t.Errorf("MasteryWithAssumedSuccess() = %v, want %v", got, want)
	}
	if it.Mastery() != before {
		t.Error("MasteryWithAssumedSuccess must not modify the item")
	}
	if it.History().Bits() != 0b10110110 {
		t.Errorf("Bits() = %08b, want 10110110", it.History().Bits())
	}
}

func TestCheck(t *testing.T) {
	it := New(0, "あ", "a", 1)

	tests := []struct {
		input string
		want  bool
	}{
		{input: "a", want: true},
		{input: "  a\n", want: true},
		{input: "a\r\n", want: true},
		{input: "A", want: false},
		{input: "ab", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		if got := it.Check(tt.input); got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAccessors(t *testing.T) {
	it := New(3, "か", "ka", 0.25)

	if it.ID() != 3 {
		t.Errorf("ID() = %d, want 3", it.ID())
	}
	if it.Prompt() != "か" {
		t.Errorf("Prompt() = %q, want %q", it.Prompt(), "か")
	}
	if it.Response() != "ka" {
		t.Errorf("Response() = %q, want %q", it.Response(), "ka")
	}
	if it.Importance() != 0.25 {
		t.Errorf("Importance() = %v, want 0.25", it.Importance())
	}
	if it.Mastery() != 0 {
		t.Errorf("Mastery() = %v, want 0", it.Mastery())
	}
}

func TestString(t *testing.T) {
	it := NewWithHistory(0, "か", "ka", 0.25, history.FromBits(0b00000001))

	want := "か -> ka, mastery: 50%, p: 25%"
	if got := it.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
