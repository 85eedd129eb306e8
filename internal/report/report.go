// Package report renders human-readable summaries of pipeline runs and
// score listings.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ArticleFactory/internal/domain"
)

const reasonWidth = 80

type styles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	pass    lipgloss.Style
	review  lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		heading: r.NewStyle().Bold(true),
		pass:    r.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		review:  r.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#999999")),
	}
}

func (s styles) status(status domain.QualityStatus) lipgloss.Style {
	switch status {
	case domain.QualityPass:
		return s.pass
	case domain.QualityFail:
		return s.fail
	default:
		return s.review
	}
}

// DeltaLabel marks a score change as an improvement, regression or no-op.
func DeltaLabel(delta int) string {
	switch {
	case delta > 0:
		return fmt.Sprintf("↑ +%d", delta)
	case delta < 0:
		return fmt.Sprintf("↓ %d", delta)
	default:
		return "→ 0"
	}
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// Run writes the end-of-run report.
func Run(w io.Writer, record domain.RunRecord) error {
	st := newStyles(w)
	var sb strings.Builder

	title := "Pipeline run " + record.ID
	if record.DryRun {
		title += " (dry run)"
	}
	sb.WriteString(st.title.Render(title) + "\n")

	s := record.Summary
	fmt.Fprintf(&sb, "scored %d · generated %d · enriched %d · published %d · review %d · rejected %d · skipped %d · errors %d · average %.1f\n",
		s.Scored, s.Generated, s.Enriched, s.Published, s.Review, s.Rejected, s.Skipped, s.Errors, s.AverageScore)

	section := func(name string, n int, lines func()) {
		sb.WriteString("\n" + st.heading.Render(fmt.Sprintf("%s (%d)", name, n)) + "\n")
		if n == 0 {
			sb.WriteString(st.muted.Render("  none") + "\n")
			return
		}
		lines()
	}

	section("Generated", len(record.Generated), func() {
		for _, g := range record.Generated {
			note := ""
			if g.DryRun {
				note = st.muted.Render(" (dry run)")
			}
			fmt.Fprintf(&sb, "  %s/%s  %q%s\n", g.Category, g.Slug, g.Keyword, note)
		}
	})

	section("Enriched", len(record.Enriched), func() {
		for _, e := range record.Enriched {
			label := DeltaLabel(e.Delta())
			switch {
			case e.Delta() > 0:
				label = st.pass.Render(label)
			case e.Delta() < 0:
				label = st.fail.Render(label)
			}
			note := ""
			if e.Estimated {
				note = st.muted.Render(" (estimated)")
			}
			fmt.Fprintf(&sb, "  %s/%s  %d → %d  %s%s\n", e.Category, e.Slug, e.BeforeScore, e.AfterScore, label, note)
		}
	})

	section("Published", len(record.Published), func() {
		for _, p := range record.Published {
			fmt.Fprintf(&sb, "  %s/%s  %s\n", p.Category, p.Slug, st.pass.Render(fmt.Sprint(p.Score)))
		}
	})

	section("Rejected", len(record.Rejected), func() {
		for _, r := range record.Rejected {
			fmt.Fprintf(&sb, "  %s/%s  %s  %s\n", r.Category, r.Slug, st.fail.Render(fmt.Sprint(r.Score)), Truncate(r.Reason, reasonWidth))
		}
	})

	if len(record.Skipped) > 0 {
		section("Skipped", len(record.Skipped), func() {
			for _, k := range record.Skipped {
				fmt.Fprintf(&sb, "  %q  %s\n", k.Keyword, st.muted.Render(k.Reason))
			}
		})
	}

	section("Errors", len(record.Errors), func() {
		for _, e := range record.Errors {
			subject := e.Slug
			if subject == "" {
				subject = e.Keyword
			}
			if subject == "" {
				subject = "-"
			}
			fmt.Fprintf(&sb, "  [%s] %s: %s\n", e.Stage, subject, st.fail.Render(Truncate(e.Error, reasonWidth)))
		}
	})

	_, err := io.WriteString(w, sb.String())
	return err
}

var tableDimensions = []struct {
	name   string
	header string
}{
	{domain.DimensionLength, "LEN"},
	{domain.DimensionStructure, "STRUCT"},
	{domain.DimensionSEO, "SEO"},
	{domain.DimensionContent, "CONTENT"},
	{domain.DimensionValidity, "VALID"},
	{domain.DimensionFacts, "FACTS"},
}

// Scores writes one row per evaluation. With issues set, every issue is
// listed under its row; otherwise only the first one is shown.
func Scores(w io.Writer, scores []domain.QualityScore, issues bool) error {
	st := newStyles(w)
	var sb strings.Builder

	if len(scores) == 0 {
		sb.WriteString(st.muted.Render("no artifacts matched") + "\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	withFacts := false
	width := len("ARTIFACT")
	for _, s := range scores {
		if _, ok := s.Scores[domain.DimensionFacts]; ok {
			withFacts = true
		}
		width = max(width, len(s.Ref.Key()))
	}

	header := fmt.Sprintf("%-*s  %5s  %-6s", width, "ARTIFACT", "TOTAL", "STATUS")
	for _, d := range tableDimensions {
		if d.name == domain.DimensionFacts && !withFacts {
			continue
		}
		header += fmt.Sprintf("  %*s", len(d.header), d.header)
	}
	sb.WriteString(st.heading.Render(header) + "\n")

	for _, s := range scores {
		row := fmt.Sprintf("%-*s  %5d  %s", width, s.Ref.Key(), s.TotalScore, st.status(s.Status).Render(fmt.Sprintf("%-6s", s.Status)))
		for _, d := range tableDimensions {
			if d.name == domain.DimensionFacts && !withFacts {
				continue
			}
			row += fmt.Sprintf("  %*d", len(d.header), s.Scores[d.name])
		}
		sb.WriteString(row + "\n")

		shown := s.Issues
		if !issues && len(shown) > 1 {
			shown = shown[:1]
		}
		for _, issue := range shown {
			sb.WriteString(st.muted.Render("    - "+issue) + "\n")
		}
	}

	counts := map[domain.QualityStatus]int{}
	for _, s := range scores {
		counts[s.Status]++
	}
	statuses := []domain.QualityStatus{domain.QualityPass, domain.QualityReview, domain.QualityFail}
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, fmt.Sprintf("%s %d", status, counts[status]))
	}
	sb.WriteString("\n" + strings.Join(parts, " · ") + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
