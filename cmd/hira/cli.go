package main

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/hira/internal/config"
	"github.com/hpungsan/hira/internal/console"
	"github.com/hpungsan/hira/internal/corpus"
	"github.com/hpungsan/hira/internal/db"
	"github.com/hpungsan/hira/internal/drill"
	"github.com/hpungsan/hira/internal/errors"
	"github.com/hpungsan/hira/internal/item"
	"github.com/hpungsan/hira/internal/mcp"
	"github.com/hpungsan/hira/internal/metrics"
	"github.com/hpungsan/hira/internal/ops"
	"github.com/hpungsan/hira/internal/report"
	"github.com/hpungsan/hira/internal/scheduler"
	"github.com/hpungsan/hira/internal/web"
)

// app carries process-level state shared by every command.
type app struct {
	globalDir string // ~/.hira: global config and journal
	workDir   string // where the repo config search starts

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg *config.Config
}

// newCLIApp creates the CLI application with all commands.
// With no command, hira plays.
func newCLIApp(a *app) *cli.App {
	app := &cli.App{
		Name:      "hira",
		Usage:     "Adaptive translation flashcards",
		Version:   Version,
		Reader:    a.stdin,
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: append(sessionFlags(),
			&cli.BoolFlag{Name: "verbose", Usage: "Log debug detail to stderr"},
			&cli.BoolFlag{Name: "report", Usage: "Print the full progress table when play ends"},
			&cli.BoolFlag{Name: "ui", Usage: "Serve the progress dashboard while playing"},
		),
		Before: a.setup,
		Action: a.play,
		Commands: []*cli.Command{
			playCmd(a),
			checkCmd(a),
			simulateCmd(a),
			sessionsCmd(a),
			statsCmd(a),
			exportCmd(a),
			mcpCmd(a),
			serveCmd(a),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// sessionFlags override the session settings from config.
func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "corpus", Aliases: []string{"c"}, Usage: "Dictionary file (default: built-in hiragana)"},
		&cli.Int64Flag{Name: "seed", Usage: "Random seed (0 seeds from the clock)"},
		&cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Usage: "Selection strategy: front-biased|greedy"},
		&cli.IntFlag{Name: "max-redraws", Usage: "Draws retried to avoid repeating the last card"},
		&cli.BoolFlag{Name: "allow-repeats", Usage: "Allow the same card twice in a row"},
		&cli.BoolFlag{Name: "journal", Aliases: []string{"j"}, Usage: "Record rounds to the journal database"},
		&cli.BoolFlag{Name: "no-clear", Usage: "Do not clear the terminal between rounds"},
	}
}

// setup configures logging and loads config before any command runs.
func (a *app) setup(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.LoadWithRepo(a.globalDir, a.workDir)
	if err != nil {
		return outputError(errors.NewInvalidRequest(fmt.Sprintf("load config: %v", err)))
	}
	a.cfg = cfg
	return nil
}

// applyFlags overlays explicitly set command-line flags onto cfg.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("corpus") {
		cfg.CorpusPath = c.String("corpus")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Int64("seed")
	}
	if c.IsSet("strategy") {
		cfg.Strategy = c.String("strategy")
	}
	if c.IsSet("max-redraws") {
		cfg.MaxRedraws = c.Int("max-redraws")
	}
	if c.IsSet("allow-repeats") {
		cfg.AllowRepeats = c.Bool("allow-repeats")
	}
	if c.IsSet("journal") {
		cfg.Journal = c.Bool("journal")
	}
	if c.IsSet("no-clear") {
		cfg.NoClear = c.Bool("no-clear")
	}
}

// sessionEnv is a session ready to drive, with its optional journal.
type sessionEnv struct {
	session *drill.Session
	source  string
	db      *sql.DB // nil unless the journal is enabled
	metrics *metrics.Metrics

	close func()
}

// openSession loads the corpus and builds a session from cfg.
// The journal is opened only when record is set and cfg.Journal is on.
func (a *app) openSession(ctx context.Context, cfg *config.Config, record bool) (*sessionEnv, error) {
	items, err := corpus.Load(cfg.CorpusPath)
	if err != nil {
		return nil, err
	}

	source := cfg.CorpusPath
	if source == "" {
		source = corpus.BuiltinName
	}

	strategy, err := scheduler.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rt := &sessionEnv{source: source, metrics: metrics.New(), close: func() {}}

	var journal drill.Journal
	if record && cfg.Journal {
		database, err := a.openJournal(cfg)
		if err != nil {
			return nil, err
		}

		s := &db.Session{CorpusPath: source, ItemCount: len(items), Strategy: string(strategy), Seed: seed}
		if err := db.StartSession(ctx, database, s); err != nil {
			database.Close()
			return nil, err
		}
		slog.Debug("journal session started", "session", s.ID)

		journal = db.NewJournal(database, s.ID)
		rt.db = database
		rt.close = func() {
			if err := db.EndSession(context.Background(), database, s.ID, time.Now().Unix()); err != nil {
				slog.Warn("failed to close journal session", "session", s.ID, "error", err)
			}
			database.Close()
		}
	}

	rt.session, err = drill.NewSession(items, drill.Options{
		Strategy:     strategy,
		Seed:         seed,
		MaxRedraws:   cfg.MaxRedraws,
		AllowRepeats: cfg.AllowRepeats,
		Journal:      journal,
		Recorder:     rt.metrics,
		Logger:       slog.Default(),
	})
	if err != nil {
		rt.close()
		return nil, err
	}

	return rt, nil
}

// openJournal opens the journal database under the global directory.
func (a *app) openJournal(cfg *config.Config) (*sql.DB, error) {
	database, err := db.Init(a.globalDir)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("open journal: %w", err))
	}
	db.ConfigurePool(database, cfg)
	return database, nil
}

// startDashboard serves the dashboard until ctx is done. The returned
// channel yields the server's exit error.
func startDashboard(ctx context.Context, rt *sessionEnv, cfg *config.Config) <-chan error {
	srv := web.NewServer(rt.session, rt.db, rt.metrics.Handler(), Version, cfg.UIBind, cfg.UIPort)
	done := make(chan error, 1)
	go func() {
		done <- web.Run(ctx, srv)
	}()
	return done
}

// playCmd creates the play command.
func playCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Drill cards in the terminal (default command)",
		Flags: append(sessionFlags(),
			&cli.BoolFlag{Name: "report", Usage: "Print the full progress table when play ends"},
			&cli.BoolFlag{Name: "ui", Usage: "Serve the progress dashboard while playing"},
		),
		Action: a.play,
	}
}

func (a *app) play(c *cli.Context) error {
	if c.NArg() > 0 {
		return outputError(errors.NewInvalidRequest(fmt.Sprintf("unknown command %q", c.Args().First())))
	}

	cfg := *a.cfg
	applyFlags(c, &cfg)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := a.openSession(ctx, &cfg, true)
	if err != nil {
		return outputError(err)
	}
	defer rt.close()

	var dashboard <-chan error
	if c.Bool("ui") {
		uiCtx, cancel := context.WithCancel(ctx)
		dashboard = startDashboard(uiCtx, rt, &cfg)
		defer func() {
			cancel()
			if err := <-dashboard; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				slog.Warn("dashboard stopped", "error", err)
			}
		}()
	}

	printBanner(a.stdout, rt.source, rt.session.Len(), string(rt.session.Strategy()))

	con := console.New(a.stdin, a.stdout, !cfg.NoClear)
	err = drill.Play(ctx, rt.session, con)
	if err != nil && !stderrors.Is(err, io.EOF) && !stderrors.Is(err, context.Canceled) {
		return outputError(err)
	}

	summary := rt.session.Progress()
	fmt.Fprintf(a.stdout, "\nTotal mastery: %d%% after %d rounds (%d correct)\n",
		item.Percent(summary.TotalMastery), summary.Rounds, summary.Correct)
	if c.Bool("report") {
		fmt.Fprintln(a.stdout)
		fmt.Fprint(a.stdout, report.Markdown(summary))
	}
	return nil
}

// checkCmd creates the check command.
func checkCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Validate a dictionary file without playing",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			path := a.cfg.CorpusPath
			if c.NArg() > 0 {
				path = c.Args().First()
			}

			output, err := ops.Check(ops.CheckInput{Path: path})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(a.stdout, output)
		},
	}
}

// simulateCmd creates the simulate command.
func simulateCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Drill a synthetic learner and report selection statistics",
		Flags: append(sessionFlags(),
			&cli.IntFlag{Name: "rounds", Aliases: []string{"n"}, Value: ops.DefaultSimulateRounds, Usage: "Rounds to play"},
			&cli.Float64Flag{Name: "learn-rate", Value: ops.DefaultLearnRate, Usage: "Share of the remaining gap learned per exposure"},
		),
		Action: func(c *cli.Context) error {
			cfg := *a.cfg
			applyFlags(c, &cfg)

			output, err := ops.Simulate(c.Context, ops.SimulateInput{
				Path:         cfg.CorpusPath,
				Rounds:       c.Int("rounds"),
				Seed:         cfg.Seed,
				Strategy:     cfg.Strategy,
				MaxRedraws:   cfg.MaxRedraws,
				AllowRepeats: cfg.AllowRepeats,
				LearnRate:    c.Float64("learn-rate"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(a.stdout, output)
		},
	}
}

// sessionsCmd creates the sessions command.
func sessionsCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List journal sessions, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			database, err := a.openJournal(a.cfg)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			output, err := ops.List(c.Context, database, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(a.stdout, output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Per-card journal statistics for one session or all",
		ArgsUsage: "[session-id]",
		Action: func(c *cli.Context) error {
			database, err := a.openJournal(a.cfg)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			output, err := ops.Stats(c.Context, database, ops.StatsInput{SessionID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(a.stdout, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write journal rounds to a JSONL file",
		ArgsUsage: "[session-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output file (default: ~/.hira/exports/<session|all>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			database, err := a.openJournal(a.cfg)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			output, err := ops.Export(c.Context, database, ops.ExportInput{
				Path:      c.String("path"),
				Dir:       filepath.Join(a.globalDir, "exports"),
				SessionID: c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(a.stdout, output)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve a drill session as MCP tools over stdio",
		Flags: append(sessionFlags(),
			&cli.BoolFlag{Name: "ui", Usage: "Serve the progress dashboard alongside"},
		),
		Action: func(c *cli.Context) error {
			cfg := *a.cfg
			applyFlags(c, &cfg)

			rt, err := a.openSession(c.Context, &cfg, true)
			if err != nil {
				return outputError(err)
			}
			defer rt.close()

			if c.Bool("ui") {
				ctx, cancel := context.WithCancel(c.Context)
				defer cancel()
				startDashboard(ctx, rt, &cfg)
			}

			if err := mcp.Run(rt.session, rt.db, &cfg, Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the dashboard: journal history and a fresh deck",
		Flags: append(sessionFlags(),
			&cli.StringFlag{Name: "bind", Usage: "Listen address (default from config, 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default from config, 8765)"},
		),
		Action: func(c *cli.Context) error {
			cfg := *a.cfg
			applyFlags(c, &cfg)
			if c.IsSet("bind") {
				cfg.UIBind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.UIPort = c.Int("port")
			}

			rt, err := a.openSession(c.Context, &cfg, false)
			if err != nil {
				return outputError(err)
			}
			defer rt.close()

			rt.db, err = a.openJournal(&cfg)
			if err != nil {
				return outputError(err)
			}
			defer rt.db.Close()

			if err := <-startDashboard(c.Context, rt, &cfg); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to w as JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var hErr *errors.HiraError
	if stderrors.As(err, &hErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", hErr.Code, hErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
