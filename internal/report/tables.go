package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"ArticleFactory/internal/domain"
)

func newTable(st styles, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.muted).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.heading.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func writeTable(w io.Writer, t *table.Table) error {
	_, err := io.WriteString(w, t.String()+"\n")
	return err
}

// Backlog writes the keyword backlog, highest priority first as given.
func Backlog(w io.Writer, items []domain.KeywordOpportunity) error {
	st := newStyles(w)
	if len(items) == 0 {
		_, err := io.WriteString(w, st.muted.Render("backlog is empty")+"\n")
		return err
	}

	t := newTable(st, "PRIORITY", "STATUS", "CATEGORY", "KEYWORD")
	for _, k := range items {
		t.Row(fmt.Sprint(k.Priority), string(k.Status), k.Category, k.Keyword)
	}
	return writeTable(w, t)
}

// History writes recent runs, one row per run.
func History(w io.Writer, rows []domain.RunHistoryEntry) error {
	st := newStyles(w)
	if len(rows) == 0 {
		_, err := io.WriteString(w, st.muted.Render("no runs recorded")+"\n")
		return err
	}

	t := newTable(st, "STARTED", "DURATION", "NEW", "ENRICHED", "PUBLISHED", "REJECTED", "ERRORS", "AVG", "ID")
	for _, r := range rows {
		s := r.Summary
		id := r.ID
		if r.DryRun {
			id += " (dry run)"
		}
		t.Row(
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String(),
			fmt.Sprint(s.Generated),
			fmt.Sprint(s.Enriched),
			fmt.Sprint(s.Published),
			fmt.Sprint(s.Rejected),
			fmt.Sprint(s.Errors),
			fmt.Sprintf("%.1f", s.AverageScore),
			id,
		)
	}
	return writeTable(w, t)
}
