package mcp

import "github.com/mark3labs/mcp-go/mcp"

var nextToolDef = mcp.NewTool("drill_next",
	mcp.WithDescription("Select the next flashcard. Returns the pending card again if it has not been answered. "+
		"On first exposure the expected response is included; show it to the user and then call drill_answer."),
)

var answerToolDef = mcp.NewTool("drill_answer",
	mcp.WithDescription("Answer the pending flashcard. Whitespace is trimmed; comparison is exact and case-sensitive."),
	mcp.WithString("answer",
		mcp.Required(),
		mcp.Description("The user's response to the pending prompt"),
	),
)

var progressToolDef = mcp.NewTool("drill_progress",
	mcp.WithDescription("Report session progress: importance-weighted total mastery, rounds played and cards seen."),
	mcp.WithBoolean("include_items",
		mcp.Description("Include one row per card in scheduling order (default false)"),
	),
)

var itemsToolDef = mcp.NewTool("drill_items",
	mcp.WithDescription("List cards in scheduling order, weakest first, with mastery and answer history."),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Rows to skip (default 0)")),
)

var sessionsToolDef = mcp.NewTool("journal_sessions",
	mcp.WithDescription("List recorded drill sessions, newest first."),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Rows to skip (default 0)")),
)

var statsToolDef = mcp.NewTool("journal_stats",
	mcp.WithDescription("Per-card answer statistics from the journal."),
	mcp.WithString("session_id", mcp.Description("Restrict to one session; omit for all sessions")),
)
