package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/hira/internal/drill"
	"github.com/hpungsan/hira/internal/errors"
	"github.com/hpungsan/hira/internal/ops"
	"github.com/hpungsan/hira/internal/report"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	session *drill.Session
	db      *sql.DB // nil when the journal is disabled
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(session *drill.Session, db *sql.DB) *Handlers {
	return &Handlers{session: session, db: db}
}

// AnswerRequest represents the arguments for drill_answer.
type AnswerRequest struct {
	Answer *string `json:"answer"`
}

// ProgressRequest represents the arguments for drill_progress.
type ProgressRequest struct {
	IncludeItems bool `json:"include_items,omitempty"`
}

// PageRequest represents the arguments for paginated tools.
type PageRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// StatsRequest represents the arguments for journal_stats.
type StatsRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// ItemsOutput is a page of cards in scheduling order.
type ItemsOutput struct {
	Items      []report.Row   `json:"items"`
	Pagination ops.Pagination `json:"pagination"`
}

// HandleNext handles the drill_next tool call.
func (h *Handlers) HandleNext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.session.Next())
}

// HandleAnswer handles the drill_answer tool call.
func (h *Handlers) HandleAnswer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AnswerRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Answer == nil {
		return errorResult(errors.NewInvalidRequest("answer is required")), nil
	}

	fb, err := h.session.Answer(ctx, *input.Answer)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(fb)
}

// HandleProgress handles the drill_progress tool call.
func (h *Handlers) HandleProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProgressRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	summary := h.session.Progress()
	if !input.IncludeItems {
		summary.Rows = nil
	}

	return successResult(summary)
}

// HandleItems handles the drill_items tool call.
func (h *Handlers) HandleItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = ops.DefaultListLimit
	}
	limit = min(limit, ops.MaxListLimit)
	offset := max(input.Offset, 0)

	rows := h.session.Progress().Rows
	start := min(offset, len(rows))
	end := min(start+limit, len(rows))

	page := rows[start:end]
	if page == nil {
		page = []report.Row{}
	}

	return successResult(ItemsOutput{
		Items: page,
		Pagination: ops.Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < len(rows),
			Total:   len(rows),
		},
	})
}

// HandleSessions handles the journal_sessions tool call.
func (h *Handlers) HandleSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, ops.ListInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the journal_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Stats(ctx, h.db, ops.StatsInput{SessionID: input.SessionID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var hErr *errors.HiraError
	if stderrors.As(err, &hErr) {
		msg := hErr.Message
		if err != error(hErr) {
			// keep the wrapper's context
			msg = err.Error()
		}
		if hErr.Code == errors.ErrInternal {
			msg = "an internal error occurred"
		}

		errorObj := map[string]any{
			"code":    hErr.Code,
			"message": msg,
			"status":  hErr.Status,
		}
		if hErr.Code != errors.ErrInternal && hErr.Details != nil {
			errorObj["details"] = hErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
