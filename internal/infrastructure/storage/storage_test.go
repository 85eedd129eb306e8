package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "backlog.db")

	first, err := Open(ctx, DriverSQLite, path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := first.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	first.Close()

	second, err := Open(ctx, DriverSQLite, path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer second.Close()
	v2, err := second.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != 2 || len(v2) != 2 {
		t.Fatalf("expected 2 migrations both times, got %v then %v", v1, v2)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestBacklogPriorityAndConsumption(t *testing.T) {
	ctx := context.Background()
	backlog := NewBacklog(openTestDB(t))

	for _, k := range []domain.KeywordOpportunity{
		{Keyword: "best wine with salmon", Category: "pairings", Priority: 90},
		{Keyword: "decanting basics", Category: "guides", Priority: 40},
		{Keyword: "wine with steak", Category: "pairings", Priority: 70},
	} {
		if err := backlog.Add(ctx, k); err != nil {
			t.Fatalf("Add(%q): %v", k.Keyword, err)
		}
	}

	top, err := backlog.TopActive(ctx, 2)
	if err != nil {
		t.Fatalf("TopActive: %v", err)
	}
	if len(top) != 2 || top[0].Keyword != "best wine with salmon" || top[1].Keyword != "wine with steak" {
		t.Fatalf("unexpected order: %+v", top)
	}
	if top[0].Status != domain.KeywordActive || top[0].Category != "pairings" {
		t.Fatalf("unexpected fields: %+v", top[0])
	}

	if err := backlog.MarkUsed(ctx, "best wine with salmon"); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	if err := backlog.MarkUsed(ctx, "best wine with salmon"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("second MarkUsed should report not found, got %v", err)
	}

	top, err = backlog.TopActive(ctx, 5)
	if err != nil {
		t.Fatalf("TopActive: %v", err)
	}
	if len(top) != 2 || top[0].Keyword != "wine with steak" {
		t.Fatalf("used keyword still active: %+v", top)
	}

	used, err := backlog.List(ctx, domain.KeywordUsed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(used) != 1 || used[0].Status != domain.KeywordUsed {
		t.Fatalf("unexpected used list: %+v", used)
	}

	// Re-adding a used keyword must not resurrect it.
	if err := backlog.Add(ctx, domain.KeywordOpportunity{Keyword: "best wine with salmon", Priority: 99}); err != nil {
		t.Fatalf("re-Add: %v", err)
	}
	got, err := backlog.Get(ctx, "best wine with salmon")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.KeywordUsed || got.Priority != 99 {
		t.Fatalf("unexpected keyword after re-add: %+v", got)
	}
}

func TestBacklogEmpty(t *testing.T) {
	backlog := NewBacklog(openTestDB(t))
	top, err := backlog.TopActive(context.Background(), 3)
	if err != nil {
		t.Fatalf("TopActive: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(top))
	}
	if err := backlog.Add(context.Background(), domain.KeywordOpportunity{Keyword: "  "}); err == nil {
		t.Fatalf("expected error for empty keyword")
	}
}

func TestHistoryLogAndRecent(t *testing.T) {
	ctx := context.Background()
	history := NewHistory(openTestDB(t))

	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b"} {
		record := domain.NewRunRecord(id, base.Add(time.Duration(i)*time.Hour), domain.RunOptions{})
		record.FinishedAt = record.Timestamp.Add(time.Minute)
		record.Summary = domain.RunSummary{Scored: 10 + i, Published: i, AverageScore: 71.5}
		if _, err := history.Log(ctx, *record); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	rows, err := history.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "run-b" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0].Summary.Scored != 11 || rows[0].Summary.AverageScore != 71.5 {
		t.Fatalf("unexpected summary: %+v", rows[0].Summary)
	}
}

func TestOpenReadOnlyMissingFileCreatesNothing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "backlog.db")

	db, err := OpenReadOnly(ctx, DriverSQLite, path)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	defer db.Close()

	items, err := NewBacklog(db).TopActive(ctx, 5)
	if err != nil {
		t.Fatalf("TopActive: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty backlog, got %v", items)
	}
	if _, err := os.Stat(filepath.Join(dir, "data")); !os.IsNotExist(err) {
		t.Fatalf("read-only open created the data directory: %v", err)
	}
}

func TestOpenReadOnlyExistingFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "backlog.db")

	rw, err := Open(ctx, DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := NewBacklog(rw).Add(ctx, domain.KeywordOpportunity{Keyword: "wine with salmon", Category: "pairings", Priority: 3}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	rw.Close()

	ro, err := OpenReadOnly(ctx, DriverSQLite, path)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	defer ro.Close()

	backlog := NewBacklog(ro)
	items, err := backlog.TopActive(ctx, 5)
	if err != nil {
		t.Fatalf("TopActive: %v", err)
	}
	if len(items) != 1 || items[0].Keyword != "wine with salmon" {
		t.Fatalf("unexpected backlog: %v", items)
	}
	if err := backlog.Add(ctx, domain.KeywordOpportunity{Keyword: "wine with steak"}); err == nil {
		t.Fatalf("expected write to a read-only database to fail")
	}
}
