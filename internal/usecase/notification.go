package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

// MaxHighlights caps the generated and rejected items listed in a notification.
const MaxHighlights = 5

// Notifiers fans one payload out to every channel. All channels are tried;
// their failures are joined.
type Notifiers []ports.Notifier

var _ ports.Notifier = Notifiers(nil)

func (ns Notifiers) Notify(ctx context.Context, payload domain.Notification) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ArticleURL links to an artifact on the published site.
func ArticleURL(siteURL, category, slug string) string {
	return strings.TrimRight(siteURL, "/") + "/" + category + "/" + slug
}

// BuildNotification condenses a run record into the operator summary.
// Rejected highlights are the lowest scores first.
func BuildNotification(record domain.RunRecord, siteURL string) domain.Notification {
	s := record.Summary
	n := domain.Notification{
		RunID:        record.ID,
		DryRun:       record.DryRun,
		Generated:    s.Generated,
		Enriched:     s.Enriched,
		Published:    s.Published,
		Rejected:     s.Rejected,
		Errors:       s.Errors,
		AverageScore: s.AverageScore,
		Highlights:   []domain.NotificationItem{},
	}

	for _, g := range record.Generated[:min(MaxHighlights, len(record.Generated))] {
		n.Highlights = append(n.Highlights, domain.NotificationItem{
			Kind:     "generated",
			Slug:     g.Slug,
			Category: g.Category,
			URL:      ArticleURL(siteURL, g.Category, g.Slug),
		})
	}

	rejected := append([]domain.RejectedEntry(nil), record.Rejected...)
	sort.SliceStable(rejected, func(i, j int) bool { return rejected[i].Score < rejected[j].Score })
	for _, rj := range rejected[:min(MaxHighlights, len(rejected))] {
		n.Highlights = append(n.Highlights, domain.NotificationItem{
			Kind:     "rejected",
			Slug:     rj.Slug,
			Category: rj.Category,
			Score:    rj.Score,
			Reason:   rj.Reason,
			URL:      ArticleURL(siteURL, rj.Category, rj.Slug),
		})
	}

	n.Text = notificationText(n)
	return n
}

func notificationText(n domain.Notification) string {
	var sb strings.Builder
	title := "Content pipeline run"
	if n.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(&sb, "%s %s\n", title, n.RunID)
	fmt.Fprintf(&sb, "New: %d, enriched: %d, published: %d, rejected: %d, errors: %d\n",
		n.Generated, n.Enriched, n.Published, n.Rejected, n.Errors)
	fmt.Fprintf(&sb, "Average score: %.1f\n", n.AverageScore)

	for _, item := range n.Highlights {
		switch item.Kind {
		case "rejected":
			fmt.Fprintf(&sb, "- rejected %s (%d): %s\n  %s\n", item.Slug, item.Score, item.Reason, item.URL)
		default:
			fmt.Fprintf(&sb, "- new %s\n  %s\n", item.Slug, item.URL)
		}
	}
	return sb.String()
}
