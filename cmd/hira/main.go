package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/hira/internal/console"
)

// Version is set via -ldflags at build time.
var Version = "dev"

var bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// printBanner greets an interactive player. Piped output gets nothing.
func printBanner(w io.Writer, source string, cards int, strategy string) {
	if !console.IsTerminal(w) {
		return
	}
	fmt.Fprintln(w, bannerStyle.Render("hira")+
		fmt.Sprintf("  %d cards from %s, %s selection. Ctrl-D to stop.", cards, source, strategy))
	fmt.Fprintln(w)
}

func main() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine working directory: %v\n", err)
		os.Exit(1)
	}

	a := &app{
		globalDir: filepath.Join(homeDir, ".hira"),
		workDir:   workDir,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}

	if err := newCLIApp(a).RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
