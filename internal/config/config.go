package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Default values.
const (
	DefaultMaxRedraws = 64
	DefaultUIBind     = "127.0.0.1"
	DefaultUIPort     = 8765
)

// Config holds application configuration.
type Config struct {
	// CorpusPath is the dictionary file to drill. Empty means the built-in
	// hiragana deck. Relative paths are resolved against the directory that
	// holds the config directory.
	CorpusPath string `json:"corpus_path,omitempty"`

	// Seed seeds card selection. 0 seeds from the clock.
	Seed int64 `json:"seed,omitempty"`

	// Strategy is "front-biased" (default) or "greedy".
	Strategy string `json:"strategy,omitempty"`

	// MaxRedraws bounds how often a draw repeating the previous card is retried.
	MaxRedraws int `json:"max_redraws,omitempty"`

	// AllowRepeats lets the same card be drawn twice in a row.
	AllowRepeats bool `json:"allow_repeats,omitempty"`

	// NoClear keeps the terminal from being cleared between rounds.
	NoClear bool `json:"no_clear,omitempty"`

	// Journal records every round to ~/.hira/hira.db.
	Journal bool `json:"journal,omitempty"`

	// DBMaxOpenConns limits the maximum number of open journal connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle journal connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// UIBind and UIPort are the dashboard listen address.
	UIBind string `json:"ui_bind,omitempty"`
	UIPort int    `json:"ui_port,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Strategy:   "front-biased",
		MaxRedraws: DefaultMaxRedraws,
		UIBind:     DefaultUIBind,
		UIPort:     DefaultUIPort,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.hira.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	cfg.CorpusPath = resolvePath(filepath.Dir(baseDir), cfg.CorpusPath)
	return Merge(DefaultConfig(), cfg), nil
}

// LoadWithRepo loads configuration from both global (~/.hira) and repo (.hira) directories.
// Repo config is found by walking upward from startDir to find the nearest .hira/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}
	global.CorpusPath = resolvePath(filepath.Dir(globalDir), global.CorpusPath)

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}
	if repoConfigPath != "" {
		repo.CorpusPath = resolvePath(filepath.Dir(filepath.Dir(repoConfigPath)), repo.CorpusPath)
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .hira/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".hira", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		CorpusPath:     pick(overlay.CorpusPath, base.CorpusPath),
		Seed:           pick(overlay.Seed, base.Seed),
		Strategy:       pick(overlay.Strategy, base.Strategy),
		MaxRedraws:     pick(overlay.MaxRedraws, base.MaxRedraws),
		DBMaxOpenConns: pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns: pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		UIBind:         pick(overlay.UIBind, base.UIBind),
		UIPort:         pick(overlay.UIPort, base.UIPort),
	}

	// Booleans: overlay wins if true, else base
	result.AllowRepeats = base.AllowRepeats || overlay.AllowRepeats
	result.NoClear = base.NoClear || overlay.NoClear
	result.Journal = base.Journal || overlay.Journal

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pick returns overlay unless it is the zero value.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay == zero {
		return base
	}
	return overlay
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
