package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/keyword"
)

func TestRunFullPass(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog("Best wine with salmon", "Wine with steak"))
	mid := h.put("pairings", "wine-with-tuna", reviewPage())
	h.put("guides", "decanting", thinPage())

	opts := defaultOptions()
	opts.Notify = true
	record, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, record.Generated, 2)
	assert.Equal(t, "best-wine-with-salmon", record.Generated[0].Slug)
	assert.Equal(t, "wine-with-steak", record.Generated[1].Slug)
	assert.Equal(t, map[string]int{"Best wine with salmon": 1, "Wine with steak": 1}, h.backlog.used)

	assert.Equal(t, 77, record.InitialScores[mid.Key()].TotalScore)
	require.Len(t, record.Enriched, 1)
	assert.Equal(t, domain.EnrichedEntry{Slug: mid.Slug, Category: mid.Category, BeforeScore: 77, AfterScore: 100}, record.Enriched[0])
	require.Len(t, h.enricher.calls, 1)
	assert.Equal(t, []string{"Estate Number 1"}, h.enricher.calls[0].ExistingRecommendations)

	before := record.InitialScores[mid.Key()]
	after := record.Scores[mid.Key()]
	assert.Greater(t, after.Scores[domain.DimensionStructure], before.Scores[domain.DimensionStructure])
	assert.Greater(t, after.Scores[domain.DimensionLength], before.Scores[domain.DimensionLength])

	var published []string
	for _, p := range record.Published {
		published = append(published, p.Category+"/"+p.Slug)
	}
	assert.Equal(t, []string{"pairings/best-wine-with-salmon", "pairings/wine-with-steak", "pairings/wine-with-tuna"}, published)

	require.Len(t, record.Rejected, 1)
	assert.Equal(t, "decanting", record.Rejected[0].Slug)
	assert.Equal(t, "word count critically low (100 < 500); too few sections (0 < 3)", record.Rejected[0].Reason)
	assert.Empty(t, h.archiver.archived)

	assert.Equal(t, domain.RunSummary{
		Scored: 4, Generated: 2, Enriched: 1, Published: 3, Rejected: 1, AverageScore: 81.5,
	}, record.Summary)
	assert.Empty(t, record.Errors)

	require.Len(t, h.runLog.records, 1)
	assert.Equal(t, record, h.runLog.records[0])
	require.Len(t, h.notifier.payloads, 1)
	assert.Equal(t, 3, h.notifier.payloads[0].Published)
}

func TestGenerateIsIdempotent(t *testing.T) {
	t.Parallel()

	backlog := newBacklog("Best wine with salmon")
	backlog.frozen = true
	h := newHarness(backlog)
	opts := defaultOptions()
	opts.SkipEnrich = true

	first, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, first.Generated, 1)

	second, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, second.Generated)
	assert.Equal(t, []domain.SkippedEntry{{Slug: "best-wine-with-salmon", Keyword: "Best wine with salmon", Reason: ReasonExists}}, second.Skipped)

	assert.Len(t, h.generator.calls, 1)
	assert.Equal(t, 1, backlog.used["Best wine with salmon"])
	refs, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestGenerationFailureKeepsKeywordActive(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog("Wine with steak", "Wine with lamb"))
	h.generator.fail["Wine with steak"] = errors.New("generator exited with status 1")

	record, err := h.pipeline().Run(context.Background(), defaultOptions())
	require.NoError(t, err)

	require.Len(t, record.Generated, 1)
	assert.Equal(t, "wine-with-lamb", record.Generated[0].Slug)
	require.Len(t, record.Errors, 1)
	assert.Equal(t, domain.ErrorEntry{
		Stage: domain.StageGenerate, Slug: "wine-with-steak", Keyword: "Wine with steak", Error: "generator exited with status 1",
	}, record.Errors[0])
	assert.Zero(t, h.backlog.used["Wine with steak"])
	assert.Equal(t, domain.KeywordActive, h.backlog.items[0].Status)
}

func TestGenerateSkipsSemanticDuplicates(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog("red wine pairing", "wine red pairing", "Pairing: wine, red!"))
	h.deps.Normalizer = keyword.BagOfWords
	opts := defaultOptions()
	opts.GenerateCount = 3

	record, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, record.Generated, 1)
	require.Len(t, record.Skipped, 2)
	for _, s := range record.Skipped {
		assert.Equal(t, ReasonSemanticDuplicate, s.Reason)
		assert.Zero(t, h.backlog.used[s.Keyword])
	}

	h = newHarness(newBacklog("red wine pairing", "wine red pairing"))
	h.deps.Normalizer = keyword.Exact
	record, err = h.pipeline().Run(context.Background(), defaultOptions())
	require.NoError(t, err)
	assert.Len(t, record.Generated, 2)
}

func TestDryRunWithEmptyBacklog(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog())
	opts := defaultOptions()
	opts.DryRun = true

	record, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Empty(t, record.Generated)
	assert.NotNil(t, record.Generated)
	assert.True(t, record.DryRun)
	assert.Equal(t, []int{2}, h.backlog.requests)
	assert.Contains(t, h.logs.String(), "keyword backlog is empty")
	assert.Empty(t, h.runLog.records)

	refs, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestDryRunEstimatesWithoutMutating(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog("Wine with steak"))
	mid := h.put("pairings", "wine-with-tuna", reviewPage())
	h.put("guides", "decanting", thinPage())
	h.deps.AutoArchive = true

	opts := defaultOptions()
	opts.DryRun = true
	opts.Notify = true
	record, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []domain.GeneratedEntry{{Slug: "wine-with-steak", Keyword: "Wine with steak", Category: "pairings", DryRun: true}}, record.Generated)
	assert.Empty(t, h.generator.calls)
	assert.Empty(t, h.backlog.used)

	require.Len(t, record.Enriched, 1)
	assert.Equal(t, domain.EnrichedEntry{Slug: mid.Slug, Category: mid.Category, BeforeScore: 77, AfterScore: 92, Estimated: true}, record.Enriched[0])
	assert.Empty(t, h.enricher.calls)
	assert.Equal(t, domain.QualityPass, record.Scores[mid.Key()].Status)

	require.Len(t, record.Published, 1)
	require.Len(t, record.Rejected, 1)
	assert.Empty(t, h.archiver.archived)
	assert.Empty(t, h.runLog.records)
	assert.Empty(t, h.notifier.payloads)
	assert.Contains(t, h.logs.String(), "dry run: notification not sent")

	content, err := util.ReadFile(h.fs, "/pairings/wine-with-tuna.astro")
	require.NoError(t, err)
	assert.Equal(t, reviewPage().build(), content)
}

func TestEnrichmentFailureIsRecorded(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog())
	mid := h.put("pairings", "wine-with-tuna", reviewPage())
	h.enricher.err = errors.New("enricher timed out")

	opts := defaultOptions()
	opts.SkipGenerate = true
	record, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Empty(t, record.Enriched)
	require.Len(t, record.Errors, 1)
	assert.Equal(t, domain.StageEnrich, record.Errors[0].Stage)
	assert.Equal(t, mid.Slug, record.Errors[0].Slug)
	assert.Equal(t, 1, record.Summary.Review)
	assert.Empty(t, record.Published)
}

func TestEnrichmentRegressionIsRecorded(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog())
	mid := h.put("pairings", "wine-with-tuna", reviewPage())
	h.enricher.pages[mid.Key()] = page{words: 1000, sections: allSections[:2], meta: true, recs: 0, links: 2}

	opts := defaultOptions()
	opts.SkipGenerate = true
	record, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, record.Enriched, 1)
	assert.Negative(t, record.Enriched[0].Delta())
}

func TestEnrichCandidatesWorstFirstAndCapped(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog())
	worse := h.put("pairings", "a-worse", page{words: 1000, sections: allSections[:2], meta: true, recs: 0, links: 2})
	mid := h.put("pairings", "b-mid", reviewPage())
	h.put("pairings", "c-mid", reviewPage())
	h.put("pairings", "great", excellentPage())
	h.put("guides", "thin", thinPage())

	opts := defaultOptions()
	opts.SkipGenerate = true
	opts.EnrichLimit = 2
	_, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, h.enricher.calls, 2)
	assert.Equal(t, worse, h.enricher.calls[0].Ref)
	assert.Equal(t, mid, h.enricher.calls[1].Ref)
	assert.Less(t, h.enricher.calls[0].Score.TotalScore, h.enricher.calls[1].Score.TotalScore)
}

func TestScoringFailureIsIsolated(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog())
	bad := h.put("pairings", "locked", excellentPage())
	h.put("pairings", "open", excellentPage())
	h.deps.Scorer = failingScorer{inner: h.deps.Scorer, fail: map[string]bool{bad.Key(): true}}

	opts := defaultOptions()
	opts.SkipGenerate = true
	record, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []domain.PublishedEntry{{Slug: "open", Category: "pairings", Score: 100}}, record.Published)
	require.NotEmpty(t, record.Errors)
	for _, e := range record.Errors {
		assert.Equal(t, domain.StageScore, e.Stage)
		assert.Equal(t, "locked", e.Slug)
	}
	assert.Equal(t, 1, record.Summary.Scored)
}

func TestRunLoggerFailureAbortsRun(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog())
	h.runLog.err = errors.New("disk full")

	opts := defaultOptions()
	opts.Notify = true
	_, err := h.pipeline().Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, h.notifier.payloads)
}

func TestNotifierFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog())
	h.notifier.err = errors.New("webhook returned 502")

	opts := defaultOptions()
	opts.Notify = true
	_, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, h.notifier.payloads, 1)
	assert.Contains(t, h.logs.String(), "notification failed")
}

func TestBacklogErrorIsRecorded(t *testing.T) {
	t.Parallel()

	backlog := newBacklog()
	backlog.err = errors.New("connection refused")
	h := newHarness(backlog)

	record, err := h.pipeline().Run(context.Background(), defaultOptions())
	require.NoError(t, err)
	require.Len(t, record.Errors, 1)
	assert.Equal(t, domain.StageGenerate, record.Errors[0].Stage)
	assert.True(t, strings.HasSuffix(record.Errors[0].Error, "connection refused"))
}

func TestAutoArchiveRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog())
	h.put("guides", "decanting", thinPage())
	h.put("pairings", "great", excellentPage())
	h.deps.AutoArchive = true

	opts := defaultOptions()
	opts.SkipGenerate = true
	_, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, h.archiver.archived, 1)
	assert.True(t, strings.HasPrefix(h.archiver.archived[0], "guides/decanting: word count critically low"))
}

func TestGatesDefaultToScorerPass(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{})
	assert.Equal(t, Gates{AutoPublish: 80, Reject: 40}, p.Gates())
	assert.Equal(t, "below reject threshold", RejectReason(nil))
	assert.Equal(t, "a", RejectReason([]string{"a"}))
}

func TestNegativeEnrichLimitEnrichesNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog())
	h.put("pairings", "wine-with-tuna", reviewPage())
	h.put("pairings", "wine-with-cod", reviewPage())

	opts := defaultOptions()
	opts.SkipGenerate = true
	opts.EnrichLimit = -1
	record, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Empty(t, h.enricher.calls)
	assert.Empty(t, record.Enriched)
	assert.Equal(t, 2, record.Summary.Review)
}

func TestUnreadableCandidateIsNotEnriched(t *testing.T) {
	t.Parallel()

	h := newHarness(newBacklog())
	locked := h.put("pairings", "wine-with-tuna", reviewPage())
	open := h.put("pairings", "wine-with-cod", reviewPage())
	h.deps.Store = unreadableStore{ArtifactStore: h.store, fail: map[string]bool{locked.Key(): true}}

	opts := defaultOptions()
	opts.SkipGenerate = true
	record, err := h.pipeline().Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, h.enricher.calls, 1)
	assert.Equal(t, open, h.enricher.calls[0].Ref)

	require.Len(t, record.Errors, 1)
	assert.Equal(t, domain.StageEnrich, record.Errors[0].Stage)
	assert.Equal(t, locked.Slug, record.Errors[0].Slug)
	assert.Contains(t, record.Errors[0].Error, "permission denied")
}
