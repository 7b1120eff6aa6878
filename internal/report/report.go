package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/hira/internal/item"
)

// Row is one card in deck order.
type Row struct {
	Position   int     `json:"position"`
	ID         int     `json:"id"`
	Prompt     string  `json:"prompt"`
	Response   string  `json:"response"`
	Importance float64 `json:"importance"`
	Mastery    float64 `json:"mastery"`
	Unweighted float64 `json:"unweighted"`
	History    string  `json:"history"`
	Attempts   int     `json:"attempts"`
}

// Summary is a snapshot of a session's progress.
type Summary struct {
	Cards           int     `json:"cards"`
	Seen            int     `json:"seen"`
	Rounds          int     `json:"rounds"`
	Correct         int     `json:"correct"`
	TotalMastery    float64 `json:"total_mastery"`
	UnweightedTotal float64 `json:"unweighted_total"`
	Rows            []Row   `json:"rows,omitempty"`
}

// TotalMastery returns the importance-weighted sum of item masteries.
func TotalMastery(items []*item.Item) float64 {
	var total float64
	for _, it := range items {
		total += it.Importance() * it.Mastery()
	}
	return total
}

// UnweightedTotal is TotalMastery with the order-insensitive estimator.
func UnweightedTotal(items []*item.Item) float64 {
	var total float64
	for _, it := range items {
		total += it.Importance() * it.History().Unweighted()
	}
	return total
}

// Build snapshots items, which are expected in deck order.
func Build(items []*item.Item, rounds, correct int) Summary {
	s := Summary{
		Cards:           len(items),
		Rounds:          rounds,
		Correct:         correct,
		TotalMastery:    TotalMastery(items),
		UnweightedTotal: UnweightedTotal(items),
		Rows:            make([]Row, len(items)),
	}

	for i, it := range items {
		h := it.History()
		if !h.Empty() {
			s.Seen++
		}
		s.Rows[i] = Row{
			Position:   i,
			ID:         it.ID(),
			Prompt:     it.Prompt(),
			Response:   it.Response(),
			Importance: it.Importance(),
			Mastery:    it.Mastery(),
			Unweighted: h.Unweighted(),
			History:    h.String(),
			Attempts:   h.Len(),
		}
	}
	return s
}

// Markdown renders s as a markdown document with a per-card table.
func Markdown(s Summary) string {
	var b strings.Builder

	b.WriteString("# Progress\n\n")
	fmt.Fprintf(&b, "- Total mastery: **%d%%**\n", item.Percent(s.TotalMastery))
	fmt.Fprintf(&b, "- Cards seen: %d of %d\n", s.Seen, s.Cards)
	fmt.Fprintf(&b, "- Rounds: %d (%d correct)\n\n", s.Rounds, s.Correct)

	b.WriteString("| # | Prompt | Response | Mastery | History |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range s.Rows {
		fmt.Fprintf(&b, "| %d | %s | %s | %d%% | `%s` |\n",
			r.Position, escapeCell(r.Prompt), escapeCell(r.Response), item.Percent(r.Mastery), r.History)
	}

	return b.String()
}

// HTML renders the markdown report to an HTML fragment.
func HTML(s Summary) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(s)), &buf); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// escapeCell keeps user text from breaking the table layout.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
