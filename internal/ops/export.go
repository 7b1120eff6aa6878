package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/hira/internal/db"
	"github.com/hpungsan/hira/internal/errors"
)

// ExportSchemaVersion is written in every export header.
const ExportSchemaVersion = "1"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path      string // optional, default: <Dir>/<session|all>-<timestamp>.jsonl
	Dir       string // directory for the default path
	SessionID string // optional; empty exports every session
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export.
type ExportHeader struct {
	HiraExport    bool   `json:"_hira_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
	SessionID     string `json:"session_id,omitempty"`
}

// Export writes journal rounds as JSONL: a header line, then one round per
// line in play order. The file is written to a temp name and renamed into
// place, so an existing export survives a failed run.
func Export(ctx context.Context, database *sql.DB, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	exportedAt := now.Unix()

	exportPath := input.Path
	if exportPath == "" {
		if input.Dir == "" {
			return nil, errors.NewInvalidRequest("path or export directory is required")
		}
		exportPath = defaultExportPath(input.Dir, input.SessionID, now)
	}

	if err := ValidateExportPath(exportPath); err != nil {
		return nil, err
	}

	// Stream before creating anything so an unknown session leaves no file
	rows, err := db.StreamRounds(ctx, database, input.SessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to a temp file, then rename into place
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	// Header line first, then one round per line
	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)

	if err := enc.Encode(ExportHeader{
		HiraExport:    true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    exportedAt,
		SessionID:     input.SessionID,
	}); err != nil {
		return nil, errors.NewInternal(err)
	}

	count := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r, err := db.ScanRound(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := enc.Encode(r); err != nil {
			return nil, errors.NewInternal(err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Close before rename (required on Windows)
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted since validation
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("path must not be a symlink")
	}

	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: exportedAt,
	}, nil
}

// defaultExportPath is <dir>/<session-id|all>-<timestamp>.jsonl.
func defaultExportPath(dir, sessionID string, now time.Time) string {
	name := "all"
	if sessionID != "" {
		name = SanitizeForFilename(sessionID)
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405")))
}
