package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/hira/internal/config"
	"github.com/hpungsan/hira/internal/errors"
	"github.com/hpungsan/hira/internal/ops"
)

const twoCards = "あ -- a\nい -- i\n"

// testEnv is an app rooted in temp directories with captured output.
type testEnv struct {
	app    *app
	stdout *bytes.Buffer
	dir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	work := filepath.Join(dir, "work")
	require.NoError(t, os.MkdirAll(work, 0o755))

	stdout := &bytes.Buffer{}
	return &testEnv{
		app: &app{
			globalDir: filepath.Join(dir, "home", ".hira"),
			workDir:   work,
			stdin:     strings.NewReader(""),
			stdout:    stdout,
			stderr:    io.Discard,
		},
		stdout: stdout,
		dir:    dir,
	}
}

// writeCorpus writes content to a file under the env and returns its path.
func (e *testEnv) writeCorpus(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes args with stdin as input and returns stdout.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	e.stdout.Reset()
	e.app.stdin = strings.NewReader(stdin)
	err := newCLIApp(e.app).Run(append([]string{"hira"}, args...))
	return e.stdout.String(), err
}

func TestCLIPlay(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeCorpus(t, "deck.txt", twoCards)

	out, err := env.run(t, "\nx\ny\n", "--corpus", path, "--seed", "3", "--no-clear")
	require.NoError(t, err)

	require.Contains(t, out, "New card!")
	require.Contains(t, out, "after 3 rounds")
	require.NotContains(t, out, "# Progress")
}

func TestCLIPlay_Subcommand(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeCorpus(t, "deck.txt", twoCards)

	out, err := env.run(t, "\n\n", "play", "--corpus", path, "--seed", "3", "--report")
	require.NoError(t, err)

	require.Contains(t, out, "after 2 rounds")
	require.Contains(t, out, "# Progress")
	require.Contains(t, out, "| あ | a |")
}

func TestCLIPlay_Errors(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeCorpus(t, "deck.txt", twoCards)
	bad := env.writeCorpus(t, "bad.txt", "あ -- a\nnot a pair\n")
	empty := env.writeCorpus(t, "empty.txt", "\n\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown strategy", args: []string{"--corpus", path, "--strategy", "random"}, want: "[INVALID_REQUEST]"},
		{name: "malformed corpus", args: []string{"--corpus", bad}, want: "[CORPUS_PARSE]"},
		{name: "empty corpus", args: []string{"--corpus", empty}, want: "[EMPTY_CORPUS]"},
		{name: "unknown command", args: []string{"flashcards"}, want: "[INVALID_REQUEST]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, "", tt.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCLIPlay_JournalThenSessionsAndStats(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeCorpus(t, "deck.txt", twoCards)

	_, err := env.run(t, "\n\na\n", "--corpus", path, "--seed", "8", "--journal")
	require.NoError(t, err)

	out, err := env.run(t, "", "sessions")
	require.NoError(t, err)

	var list ops.ListOutput
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Items, 1)

	s := list.Items[0]
	require.Equal(t, 3, s.Rounds)
	require.Equal(t, int64(8), s.Seed)
	require.Equal(t, path, s.CorpusPath)
	require.NotNil(t, s.EndedAt, "session should be closed when play ends")

	out, err = env.run(t, "", "stats", s.ID)
	require.NoError(t, err)

	var stats ops.StatsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Equal(t, 3, stats.Attempts)
	require.Len(t, stats.Items, 2)
}

func TestCLIPlay_NoJournalByDefault(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeCorpus(t, "deck.txt", twoCards)

	_, err := env.run(t, "\n", "--corpus", path)
	require.NoError(t, err)

	out, err := env.run(t, "", "sessions")
	require.NoError(t, err)

	var list ops.ListOutput
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Empty(t, list.Items)
}

func TestCLIStats_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "stats", "missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "[NOT_FOUND]")
}

func TestCLICheck(t *testing.T) {
	env := newTestEnv(t)

	t.Run("file", func(t *testing.T) {
		path := env.writeCorpus(t, "deck.txt", "あ -- a\nい -- i\nあ -- o\n")
		out, err := env.run(t, "", "check", path)
		require.NoError(t, err)

		var output ops.CheckOutput
		require.NoError(t, json.Unmarshal([]byte(out), &output))
		require.Equal(t, 3, output.Cards)
		require.Equal(t, 1, output.Duplicates)
	})

	t.Run("builtin", func(t *testing.T) {
		out, err := env.run(t, "", "check")
		require.NoError(t, err)

		var output ops.CheckOutput
		require.NoError(t, json.Unmarshal([]byte(out), &output))
		require.Equal(t, "builtin:hiragana", output.Source)
		require.Equal(t, 46, output.Cards)
	})

	t.Run("malformed", func(t *testing.T) {
		path := env.writeCorpus(t, "bad.txt", "あ -- a -- b\n")
		_, err := env.run(t, "", "check", path)
		require.Error(t, err)
		require.Contains(t, err.Error(), "[CORPUS_PARSE]")
	})
}

func TestCLISimulate(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeCorpus(t, "deck.txt", "あ -- a\nい -- i\nう -- u\n")

	out, err := env.run(t, "", "simulate", "--corpus", path, "--rounds", "50", "--seed", "4")
	require.NoError(t, err)

	var output ops.SimulateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &output))
	require.Equal(t, 50, output.Rounds)
	require.Equal(t, int64(4), output.Seed)
	require.Equal(t, "front-biased", output.Strategy)
	require.Zero(t, output.Repeats)

	_, err = env.run(t, "", "simulate", "--corpus", path, "--learn-rate", "2")
	require.Error(t, err)
	require.Contains(t, err.Error(), "[INVALID_REQUEST]")
}

func TestCLIRepoConfig(t *testing.T) {
	env := newTestEnv(t)

	repoDir := filepath.Join(env.app.workDir, ".hira")
	require.NoError(t, os.MkdirAll(repoDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "config.json"),
		[]byte(`{"corpus_path": "deck.txt", "strategy": "greedy"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(env.app.workDir, "deck.txt"), []byte(twoCards), 0o644))

	out, err := env.run(t, "", "check")
	require.NoError(t, err)

	var output ops.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(out), &output))
	require.Equal(t, filepath.Join(env.app.workDir, "deck.txt"), output.Source)
	require.Equal(t, 2, output.Cards)

	out, err = env.run(t, "", "simulate", "--rounds", "10", "--seed", "1")
	require.NoError(t, err)

	var sim ops.SimulateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &sim))
	require.Equal(t, "greedy", sim.Strategy)
}

func TestCLIBadConfig(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.app.globalDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(env.app.globalDir, "config.json"), []byte("{"), 0o600))

	_, err := env.run(t, "", "check")
	require.Error(t, err)
	require.Contains(t, err.Error(), "load config")
}

func TestApplyFlags(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("corpus", "", "")
	set.Int64("seed", 0, "")
	set.String("strategy", "", "")
	set.Int("max-redraws", 0, "")
	set.Bool("allow-repeats", false, "")
	set.Bool("journal", false, "")
	set.Bool("no-clear", false, "")
	require.NoError(t, set.Parse([]string{"--seed=42", "--journal", "--max-redraws=5"}))

	cfg := config.DefaultConfig()
	cfg.CorpusPath = "from-config.txt"
	applyFlags(cli.NewContext(nil, set, nil), cfg)

	require.Equal(t, int64(42), cfg.Seed)
	require.True(t, cfg.Journal)
	require.Equal(t, 5, cfg.MaxRedraws)
	require.Equal(t, "from-config.txt", cfg.CorpusPath, "unset flags keep config values")
	require.Equal(t, "front-biased", cfg.Strategy)
	require.False(t, cfg.NoClear)
}

func TestOutputError(t *testing.T) {
	err := outputError(errors.NewNotFound("session", "abc"))
	require.Equal(t, "[NOT_FOUND] session not found: abc", err.Error())

	wrapped := outputError(errors.NewNoActiveRound())
	require.True(t, strings.HasPrefix(wrapped.Error(), "[NO_ACTIVE_ROUND]"))

	plain := outputError(io.ErrUnexpectedEOF)
	require.Equal(t, io.ErrUnexpectedEOF.Error(), plain.Error())
}

func TestCLIExport(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeCorpus(t, "deck.txt", twoCards)

	_, err := env.run(t, "\n\n", "--corpus", path, "--journal", "--seed", "2")
	require.NoError(t, err)

	out, err := env.run(t, "", "export")
	require.NoError(t, err)

	var output ops.ExportOutput
	require.NoError(t, json.Unmarshal([]byte(out), &output))
	require.Equal(t, 2, output.Count)
	require.Equal(t, filepath.Join(env.app.globalDir, "exports"), filepath.Dir(output.Path))

	data, err := os.ReadFile(output.Path)
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)

	_, err = env.run(t, "", "export", "--path", filepath.Join(env.dir, "out.txt"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "[INVALID_REQUEST]")
}
