package storage

import (
	"context"
	"fmt"
	"time"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

const runsTable = "pipeline_runs"

// History stores a summary row per logged run.
type History struct {
	*DB
}

var _ ports.RunLogger = (*History)(nil)

// NewHistory wraps an opened database.
func NewHistory(db *DB) *History {
	return &History{DB: db}
}

// Log implements ports.RunLogger and returns the run id.
func (h *History) Log(ctx context.Context, record domain.RunRecord) (string, error) {
	s := record.Summary
	query, args, err := h.sb.Insert(runsTable).
		Columns("id", "started_at", "finished_at", "dry_run", "scored", "generated", "enriched", "published", "rejected", "errors", "average_score").
		Values(record.ID,
			record.Timestamp.UTC().Format(time.RFC3339),
			record.FinishedAt.UTC().Format(time.RFC3339),
			record.DryRun, s.Scored, s.Generated, s.Enriched, s.Published, s.Rejected, s.Errors, s.AverageScore).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build run insert: %w", err)
	}
	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert run %s: %w", record.ID, err)
	}
	return record.ID, nil
}

// Recent returns the latest runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]domain.RunHistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	query, args, err := h.sb.Select("id", "started_at", "finished_at", "dry_run", "scored", "generated", "enriched", "published", "rejected", "errors", "average_score").
		From(runsTable).
		OrderBy("started_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build run query: %w", err)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunHistoryEntry
	for rows.Next() {
		var (
			row               domain.RunHistoryEntry
			started, finished string
		)
		s := &row.Summary
		if err := rows.Scan(&row.ID, &started, &finished, &row.DryRun, &s.Scored, &s.Generated, &s.Enriched, &s.Published, &s.Rejected, &s.Errors, &s.AverageScore); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		row.StartedAt, _ = time.Parse(time.RFC3339, started)
		row.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, row)
	}
	return out, rows.Err()
}
