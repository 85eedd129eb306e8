package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleFactory/internal/domain"
)

func TestBuildNotification(t *testing.T) {
	t.Parallel()

	record := domain.NewRunRecord("run-7", time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC), domain.RunOptions{})
	for i := 0; i < 7; i++ {
		record.Generated = append(record.Generated, domain.GeneratedEntry{Slug: fmt.Sprintf("new-%d", i), Category: "pairings"})
	}
	for _, score := range []int{35, 12, 20, 39, 5, 28} {
		record.Rejected = append(record.Rejected, domain.RejectedEntry{
			Slug: fmt.Sprintf("bad-%d", score), Category: "guides", Score: score, Reason: "thin",
		})
	}
	record.Summary = domain.RunSummary{Generated: 7, Rejected: 6, Published: 3, AverageScore: 61.5}

	n := BuildNotification(*record, "https://example.com/")

	require.Len(t, n.Highlights, 10)
	assert.Equal(t, "https://example.com/pairings/new-0", n.Highlights[0].URL)
	assert.Equal(t, "generated", n.Highlights[4].Kind)
	assert.Equal(t, "new-4", n.Highlights[4].Slug)

	rejected := n.Highlights[5:]
	var scores []int
	for _, item := range rejected {
		assert.Equal(t, "rejected", item.Kind)
		scores = append(scores, item.Score)
	}
	assert.Equal(t, []int{5, 12, 20, 28, 35}, scores)
	assert.Equal(t, "https://example.com/guides/bad-5", rejected[0].URL)

	assert.Equal(t, 7, n.Generated)
	assert.Equal(t, "run-7", n.RunID)
	assert.Contains(t, n.Text, "New: 7, enriched: 0, published: 3, rejected: 6, errors: 0")
	assert.Contains(t, n.Text, "Average score: 61.5")
	assert.Contains(t, n.Text, "- rejected bad-5 (5): thin")
}

func TestBuildNotificationEmptyRun(t *testing.T) {
	t.Parallel()

	record := domain.NewRunRecord("run-0", time.Now(), domain.RunOptions{DryRun: true})
	n := BuildNotification(*record, "")

	assert.NotNil(t, n.Highlights)
	assert.Empty(t, n.Highlights)
	assert.True(t, n.DryRun)
	assert.Contains(t, n.Text, "(dry run)")
	assert.Equal(t, "/pairings/x", ArticleURL("", "pairings", "x"))
}

func TestNotifiersFanOut(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	first := &recordingNotifier{err: boom}
	second := &recordingNotifier{}

	err := Notifiers{first, second}.Notify(context.Background(), domain.Notification{RunID: "r"})
	require.ErrorIs(t, err, boom)
	assert.Len(t, first.payloads, 1)
	assert.Len(t, second.payloads, 1)

	assert.NoError(t, Notifiers{second}.Notify(context.Background(), domain.Notification{}))
}
