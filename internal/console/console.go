package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/hpungsan/hira/internal/drill"
	"github.com/hpungsan/hira/internal/item"
)

// clearSequence erases the screen and homes the cursor.
const clearSequence = "\x1b[2J\x1b[H"

var (
	colorNew     = lipgloss.Color("#5DADE2")
	colorCorrect = lipgloss.Color("#2CD7C7")
	colorWrong   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#7F8C8D")
)

// Styles used for drill output.
var Styles = struct {
	New      lipgloss.Style
	Prompt   lipgloss.Style
	Correct  lipgloss.Style
	Wrong    lipgloss.Style
	Expected lipgloss.Style
	Muted    lipgloss.Style
}{
	New:      lipgloss.NewStyle().Bold(true).Foreground(colorNew),
	Prompt:   lipgloss.NewStyle().Bold(true),
	Correct:  lipgloss.NewStyle().Foreground(colorCorrect),
	Wrong:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(colorWrong),
	Expected: lipgloss.NewStyle().Bold(true),
	Muted:    lipgloss.NewStyle().Foreground(colorMuted),
}

type line struct {
	text string
	err  error
}

// Console implements drill.Presenter over a reader and a writer.
type Console struct {
	in    io.Reader
	out   io.Writer
	clear bool

	lines chan line
}

// New creates a Console. The screen is only cleared when clearScreen is set
// and out is a terminal.
func New(in io.Reader, out io.Writer, clearScreen bool) *Console {
	return &Console{
		in:    in,
		out:   out,
		clear: clearScreen && IsTerminal(out),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Show prints the round's prompt. A first exposure reveals the answer.
func (c *Console) Show(p drill.Prompt) {
	if p.FirstExposure {
		fmt.Fprintln(c.out, Styles.New.Render("New card!"))
		fmt.Fprintf(c.out, "%s -> %s\n", p.Prompt, Styles.Expected.Render(p.Response))
		fmt.Fprintln(c.out, Styles.Muted.Render("(press Enter to continue)"))
		return
	}

	fmt.Fprintln(c.out, "Translate:")
	fmt.Fprintln(c.out, Styles.Prompt.Render(p.Prompt))
}

// ReadAnswer returns the next input line without its line ending.
// It returns io.EOF once the input is exhausted and ctx.Err() if ctx ends first.
func (c *Console) ReadAnswer(ctx context.Context) (string, error) {
	if c.lines == nil {
		c.lines = make(chan line)
		go c.scan()
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// scan feeds lines to ReadAnswer. It exits when the input ends.
func (c *Console) scan() {
	defer close(c.lines)

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.lines <- line{text: strings.TrimSuffix(scanner.Text(), "\r")}
	}
	if err := scanner.Err(); err != nil {
		c.lines <- line{err: fmt.Errorf("read answer: %w", err)}
	}
}

// Feedback prints the outcome of a round and the overall progress.
func (c *Console) Feedback(fb drill.Feedback) {
	mastery := fmt.Sprintf("(%d%%)", item.Percent(fb.Mastery))

	switch {
	case fb.FirstExposure:
		fmt.Fprintf(c.out, "%s %s -> %s\n", Styles.Muted.Render("Seen:"), fb.Prompt, fb.Expected)
	case fb.Correct:
		fmt.Fprintf(c.out, "%s  %s\n", Styles.Correct.Render("Correct!"), mastery)
	default:
		fmt.Fprintf(c.out, "%s %s -> %s  %s\n",
			Styles.Wrong.Render("Wrong!"), fb.Prompt, Styles.Expected.Render(fb.Expected), mastery)
	}

	fmt.Fprintln(c.out, Styles.Muted.Render(fmt.Sprintf("Total: %d%%", item.Percent(fb.TotalMastery))))
	fmt.Fprintln(c.out)
}

// Clear erases the screen if clearing is enabled.
func (c *Console) Clear() {
	if c.clear {
		fmt.Fprint(c.out, clearSequence)
	}
}

var _ drill.Presenter = (*Console)(nil)
