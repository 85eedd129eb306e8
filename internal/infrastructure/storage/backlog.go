package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

const keywordTable = "keyword_opportunities"

var keywordColumns = []string{"keyword", "category", "priority", "status", "created_at", "updated_at"}

// Backlog is the SQL-backed keyword backlog.
type Backlog struct {
	*DB
}

var _ ports.KeywordBacklog = (*Backlog)(nil)

// NewBacklog wraps an opened database.
func NewBacklog(db *DB) *Backlog {
	return &Backlog{DB: db}
}

func nowText() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// TopActive returns up to limit active keywords, highest priority first.
func (b *Backlog) TopActive(ctx context.Context, limit int) ([]domain.KeywordOpportunity, error) {
	if limit <= 0 {
		return nil, nil
	}
	return b.list(ctx, sq.Eq{"status": string(domain.KeywordActive)}, uint64(limit))
}

// List returns every keyword, optionally filtered by status.
func (b *Backlog) List(ctx context.Context, status domain.KeywordStatus) ([]domain.KeywordOpportunity, error) {
	var where sq.Sqlizer = sq.Expr("1 = 1")
	if status != "" {
		where = sq.Eq{"status": string(status)}
	}
	return b.list(ctx, where, 0)
}

func (b *Backlog) list(ctx context.Context, where sq.Sqlizer, limit uint64) ([]domain.KeywordOpportunity, error) {
	builder := b.sb.Select(keywordColumns...).
		From(keywordTable).
		Where(where).
		OrderBy("priority DESC", "keyword ASC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build keyword query: %w", err)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	var out []domain.KeywordOpportunity
	for rows.Next() {
		var (
			k                domain.KeywordOpportunity
			status           string
			created, updated string
		)
		if err := rows.Scan(&k.Keyword, &k.Category, &k.Priority, &status, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		k.Status = domain.KeywordStatus(status)
		k.CreatedAt, _ = time.Parse(time.RFC3339, created)
		k.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keywords: %w", err)
	}
	return out, nil
}

// Add inserts a keyword or updates its priority and category. The status of
// an existing keyword is left untouched.
func (b *Backlog) Add(ctx context.Context, k domain.KeywordOpportunity) error {
	keyword := strings.TrimSpace(k.Keyword)
	if keyword == "" {
		return fmt.Errorf("add keyword: empty keyword")
	}
	status := k.Status
	if status == "" {
		status = domain.KeywordActive
	}
	now := nowText()

	query, args, err := b.sb.Insert(keywordTable).
		Columns(keywordColumns...).
		Values(keyword, k.Category, k.Priority, string(status), now, now).
		Suffix("ON CONFLICT (keyword) DO UPDATE SET priority = EXCLUDED.priority, category = EXCLUDED.category, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert keyword %q: %w", keyword, err)
	}
	return nil
}

// MarkUsed flips an active keyword to used.
func (b *Backlog) MarkUsed(ctx context.Context, keyword string) error {
	query, args, err := b.sb.Update(keywordTable).
		Set("status", string(domain.KeywordUsed)).
		Set("updated_at", nowText()).
		Where(sq.Eq{"keyword": keyword, "status": string(domain.KeywordActive)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark keyword %q used: %w", keyword, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("active keyword %q: %w", keyword, ports.ErrNotFound)
	}
	return nil
}

// Get returns one keyword regardless of status.
func (b *Backlog) Get(ctx context.Context, keyword string) (domain.KeywordOpportunity, error) {
	items, err := b.list(ctx, sq.Eq{"keyword": keyword}, 1)
	if err != nil {
		return domain.KeywordOpportunity{}, err
	}
	if len(items) == 0 {
		return domain.KeywordOpportunity{}, fmt.Errorf("keyword %q: %w", keyword, ports.ErrNotFound)
	}
	return items[0], nil
}
