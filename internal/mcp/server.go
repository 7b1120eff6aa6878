package mcp

import (
	"database/sql"
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/hira/internal/config"
	"github.com/hpungsan/hira/internal/drill"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
	journal bool // needs the journal database
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"drill_next": {
		def:     nextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNext },
	},
	"drill_answer": {
		def:     answerToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAnswer },
	},
	"drill_progress": {
		def:     progressToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProgress },
	},
	"drill_items": {
		def:     itemsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleItems },
	},
	"journal_sessions": {
		def:     sessionsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessions },
		journal: true,
	},
	"journal_stats": {
		def:     statsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
		journal: true,
	},
}

// AllToolNames returns every valid tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server driving session.
// Tools listed in cfg.DisabledTools are excluded; journal tools are only
// registered when db is non-nil.
func NewServer(session *drill.Session, db *sql.DB, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"hira",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(session, db)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}
	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		slog.Warn("unknown tools in disabled_tools", "tools", unknown)
	}

	for name, entry := range toolRegistry {
		if disabled[name] || (entry.journal && db == nil) {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(session *drill.Session, db *sql.DB, cfg *config.Config, version string) error {
	s := NewServer(session, db, cfg, version)
	return server.ServeStdio(s)
}
