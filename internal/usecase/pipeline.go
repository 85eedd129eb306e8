package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/keyword"
	"ArticleFactory/internal/ports"
	"ArticleFactory/internal/quality"
)

// Skip reasons recorded for backlog items that are not generated.
const (
	ReasonExists            = "artifact already exists"
	ReasonSemanticDuplicate = "semantic duplicate"
	ReasonEmptySlug         = "keyword yields an empty slug"
)

// Gates are the pipeline's own publish and reject cutoffs. Artifacts scoring
// in [Reject, AutoPublish) are enrichment candidates and otherwise held for
// review.
type Gates struct {
	AutoPublish int
	Reject      int
}

// DefaultGates publishes at the scorer's pass threshold and rejects below 40.
func DefaultGates(t quality.Thresholds) Gates {
	return Gates{AutoPublish: t.Pass, Reject: 40}
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Backlog   ports.KeywordBacklog
	Store     ports.ArtifactStore
	Scorer    ports.Scorer
	Generator ports.Generator
	Enricher  ports.Enricher
	Archiver  ports.Archiver
	RunLogger ports.RunLogger
	Notifier  ports.Notifier

	// Normalizer detects semantically duplicate keywords; nil means
	// keyword.BagOfWords.
	Normalizer keyword.Normalizer
	Logger     *slog.Logger

	Thresholds      quality.Thresholds
	Gates           Gates
	Pacing          time.Duration
	EstimatedLift   int
	AutoArchive     bool
	SiteURL         string
	DefaultCategory string

	Now   func() time.Time
	NewID func() string
}

// Pipeline implements the generate, score, enrich and decide workflow.
type Pipeline struct {
	backlog   ports.KeywordBacklog
	store     ports.ArtifactStore
	scorer    ports.Scorer
	generator ports.Generator
	enricher  ports.Enricher
	archiver  ports.Archiver
	runLogger ports.RunLogger
	notifier  ports.Notifier

	normalize       keyword.Normalizer
	logger          *slog.Logger
	thresholds      quality.Thresholds
	gates           Gates
	pacing          time.Duration
	lift            int
	autoArchive     bool
	siteURL         string
	defaultCategory string
	now             func() time.Time
	newID           func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		backlog:         deps.Backlog,
		store:           deps.Store,
		scorer:          deps.Scorer,
		generator:       deps.Generator,
		enricher:        deps.Enricher,
		archiver:        deps.Archiver,
		runLogger:       deps.RunLogger,
		notifier:        deps.Notifier,
		normalize:       deps.Normalizer,
		logger:          deps.Logger,
		thresholds:      deps.Thresholds,
		gates:           deps.Gates,
		pacing:          deps.Pacing,
		lift:            deps.EstimatedLift,
		autoArchive:     deps.AutoArchive,
		siteURL:         deps.SiteURL,
		defaultCategory: deps.DefaultCategory,
		now:             deps.Now,
		newID:           deps.NewID,
	}
	if p.normalize == nil {
		p.normalize = keyword.BagOfWords
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.thresholds == (quality.Thresholds{}) {
		p.thresholds = quality.DefaultThresholds()
	}
	if p.gates == (Gates{}) {
		p.gates = DefaultGates(p.thresholds)
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

// Gates returns the publish and reject cutoffs in use.
func (p *Pipeline) Gates() Gates {
	return p.gates
}

// run carries the mutable state of one execution.
type run struct {
	opts   domain.RunOptions
	record *domain.RunRecord
	calls  int
}

func (r *run) fail(stage, slug, kw string, err error) {
	r.record.Errors = append(r.record.Errors, domain.ErrorEntry{
		Stage:   stage,
		Slug:    slug,
		Keyword: kw,
		Error:   err.Error(),
	})
}

func (r *run) skip(slug, kw, reason string) {
	r.record.Skipped = append(r.record.Skipped, domain.SkippedEntry{Slug: slug, Keyword: kw, Reason: reason})
}

// Run executes one full pass. Per-item failures land in the record's errors;
// only failures of the orchestration itself are returned, in which case no
// record is persisted.
func (p *Pipeline) Run(ctx context.Context, opts domain.RunOptions) (domain.RunRecord, error) {
	r := &run{opts: opts, record: domain.NewRunRecord(p.newID(), p.now(), opts)}
	log := p.logger.With("run", r.record.ID)
	log.Info("pipeline started", "dry_run", opts.DryRun, "generate", opts.GenerateCount, "enrich_limit", opts.EnrichLimit)

	if opts.SkipGenerate {
		log.Debug("generate stage skipped")
	} else if err := p.generate(ctx, log, r); err != nil {
		return domain.RunRecord{}, err
	}

	initial, err := p.scoreAll(ctx, log, r)
	if err != nil {
		return domain.RunRecord{}, err
	}
	r.record.InitialScores = initial

	estimates := map[string]int{}
	if opts.SkipEnrich {
		log.Debug("enrich stage skipped")
	} else if estimates, err = p.enrich(ctx, log, r, initial); err != nil {
		return domain.RunRecord{}, err
	}

	var final map[string]domain.QualityScore
	if opts.DryRun {
		final = p.estimate(initial, estimates)
	} else if final, err = p.scoreAll(ctx, log, r); err != nil {
		return domain.RunRecord{}, err
	}
	r.record.Scores = final

	p.decide(ctx, log, r, final)
	p.summarize(r.record)
	r.record.FinishedAt = p.now().UTC()

	if opts.DryRun {
		log.Info("dry run: run record not persisted")
	} else if p.runLogger != nil {
		location, err := p.runLogger.Log(ctx, *r.record)
		if err != nil {
			return domain.RunRecord{}, fmt.Errorf("persist run record: %w", err)
		}
		log.Info("run record written", "location", location)
	}

	if opts.Notify {
		p.notify(ctx, log, r.record)
	}

	s := r.record.Summary
	log.Info("pipeline finished",
		"generated", s.Generated, "enriched", s.Enriched, "published", s.Published,
		"rejected", s.Rejected, "errors", s.Errors, "average_score", s.AverageScore)
	return *r.record, nil
}

// pace sleeps between consecutive external calls of a stage.
func (p *Pipeline) pace(ctx context.Context, r *run) error {
	r.calls++
	if r.calls == 1 || p.pacing <= 0 {
		return nil
	}
	timer := time.NewTimer(p.pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pipeline) generate(ctx context.Context, log *slog.Logger, r *run) error {
	if p.backlog == nil {
		log.Warn("no keyword backlog configured, nothing to generate")
		return nil
	}
	items, err := p.backlog.TopActive(ctx, r.opts.GenerateCount)
	if err != nil {
		r.fail(domain.StageGenerate, "", "", fmt.Errorf("read backlog: %w", err))
		log.Warn("keyword backlog unavailable", "error", err)
		return nil
	}
	if len(items) == 0 {
		log.Warn("keyword backlog is empty, nothing to generate")
		return nil
	}

	refs, err := p.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}
	seen := make(map[string]bool, len(refs)+len(items))
	for _, ref := range refs {
		seen[p.normalize(keyword.FromSlug(ref.Slug))] = true
	}

	r.calls = 0
	for _, item := range items {
		slug := keyword.Slug(item.Keyword)
		if slug == "" {
			r.skip(slug, item.Keyword, ReasonEmptySlug)
			continue
		}

		if _, exists, err := p.store.FindBySlug(ctx, slug); err != nil {
			r.fail(domain.StageGenerate, slug, item.Keyword, err)
			continue
		} else if exists {
			log.Debug("artifact exists, skipping keyword", "slug", slug)
			r.skip(slug, item.Keyword, ReasonExists)
			continue
		}

		key := p.normalize(item.Keyword)
		if seen[key] {
			log.Debug("semantic duplicate, skipping keyword", "keyword", item.Keyword, "key", key)
			r.skip(slug, item.Keyword, ReasonSemanticDuplicate)
			continue
		}
		seen[key] = true

		category := item.Category
		if category == "" {
			category = p.defaultCategory
		}
		entry := domain.GeneratedEntry{Slug: slug, Keyword: item.Keyword, Category: category}

		if r.opts.DryRun {
			entry.DryRun = true
			r.record.Generated = append(r.record.Generated, entry)
			continue
		}
		if p.generator == nil {
			r.fail(domain.StageGenerate, slug, item.Keyword, errors.New("no generator configured"))
			continue
		}

		if err := p.pace(ctx, r); err != nil {
			return err
		}
		res, err := p.generator.Generate(ctx, ports.GenerateRequest{Keyword: item.Keyword, Category: category, Slug: slug})
		if err != nil {
			log.Warn("generation failed", "keyword", item.Keyword, "error", err)
			r.fail(domain.StageGenerate, slug, item.Keyword, err)
			continue
		}
		if res.Ref.Category != "" {
			entry.Category = res.Ref.Category
		}
		r.record.Generated = append(r.record.Generated, entry)
		log.Info("artifact generated", "slug", slug, "category", entry.Category, "generator", p.generator.Name())

		if err := p.backlog.MarkUsed(ctx, item.Keyword); err != nil {
			r.fail(domain.StageGenerate, slug, item.Keyword, fmt.Errorf("mark keyword used: %w", err))
		}
	}
	return nil
}

// scoreAll evaluates every artifact in the live set. A failure on one
// artifact is recorded and excluded from the batch.
func (p *Pipeline) scoreAll(ctx context.Context, log *slog.Logger, r *run) (map[string]domain.QualityScore, error) {
	refs, err := p.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	scores := make(map[string]domain.QualityScore, len(refs))
	for _, ref := range refs {
		score, err := p.scorer.Score(ctx, ref)
		if err != nil {
			log.Warn("scoring failed", "artifact", ref.Key(), "error", err)
			r.fail(domain.StageScore, ref.Slug, "", err)
			continue
		}
		scores[ref.Key()] = score
	}
	log.Debug("corpus scored", "artifacts", len(scores))
	return scores, nil
}

// candidates returns the enrichment window, worst first, capped at limit.
// A negative limit selects nothing.
func (p *Pipeline) candidates(scores map[string]domain.QualityScore, limit int) []domain.QualityScore {
	var out []domain.QualityScore
	for _, s := range scores {
		if s.TotalScore >= p.gates.Reject && s.TotalScore < p.gates.AutoPublish {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore < out[j].TotalScore
		}
		return out[i].Ref.Key() < out[j].Ref.Key()
	})
	limit = max(limit, 0)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (p *Pipeline) enrich(ctx context.Context, log *slog.Logger, r *run, scores map[string]domain.QualityScore) (map[string]int, error) {
	estimates := map[string]int{}
	candidates := p.candidates(scores, r.opts.EnrichLimit)
	if len(candidates) == 0 {
		log.Debug("no enrichment candidates")
		return estimates, nil
	}

	r.calls = 0
	for _, before := range candidates {
		ref := before.Ref

		if r.opts.DryRun {
			after := min(100, before.TotalScore+p.lift)
			estimates[ref.Key()] = after
			r.record.Enriched = append(r.record.Enriched, domain.EnrichedEntry{
				Slug: ref.Slug, Category: ref.Category,
				BeforeScore: before.TotalScore, AfterScore: after, Estimated: true,
			})
			continue
		}
		if p.enricher == nil {
			r.fail(domain.StageEnrich, ref.Slug, "", errors.New("no enricher configured"))
			continue
		}

		art, err := p.store.Read(ctx, ref)
		if err != nil {
			log.Warn("cannot read artifact for enrichment", "artifact", ref.Key(), "error", err)
			r.fail(domain.StageEnrich, ref.Slug, "", fmt.Errorf("read existing recommendations: %w", err))
			continue
		}
		existing := quality.ExistingRecommendations(art.Content)

		if err := p.pace(ctx, r); err != nil {
			return nil, err
		}
		if _, err := p.enricher.Enrich(ctx, ports.EnrichRequest{Ref: ref, Score: before, ExistingRecommendations: existing}); err != nil {
			log.Warn("enrichment failed", "artifact", ref.Key(), "error", err)
			r.fail(domain.StageEnrich, ref.Slug, "", err)
			continue
		}

		after, err := p.scorer.Score(ctx, ref)
		if err != nil {
			r.fail(domain.StageScore, ref.Slug, "", err)
			continue
		}
		r.record.Enriched = append(r.record.Enriched, domain.EnrichedEntry{
			Slug: ref.Slug, Category: ref.Category,
			BeforeScore: before.TotalScore, AfterScore: after.TotalScore,
		})
		log.Info("artifact enriched", "artifact", ref.Key(), "before", before.TotalScore, "after", after.TotalScore)
	}
	return estimates, nil
}

// estimate projects dry-run enrichment results onto a copy of the scores.
func (p *Pipeline) estimate(scores map[string]domain.QualityScore, estimates map[string]int) map[string]domain.QualityScore {
	out := make(map[string]domain.QualityScore, len(scores))
	for key, s := range scores {
		if after, ok := estimates[key]; ok {
			s.TotalScore = after
			s.Status = p.thresholds.Status(after)
		}
		out[key] = s
	}
	return out
}

func (p *Pipeline) decide(ctx context.Context, log *slog.Logger, r *run, scores map[string]domain.QualityScore) {
	keys := make([]string, 0, len(scores))
	for key := range scores {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		s := scores[key]
		switch {
		case s.TotalScore >= p.gates.AutoPublish:
			r.record.Published = append(r.record.Published, domain.PublishedEntry{
				Slug: s.Ref.Slug, Category: s.Ref.Category, Score: s.TotalScore,
			})
		case s.TotalScore < p.gates.Reject:
			reason := RejectReason(s.Issues)
			r.record.Rejected = append(r.record.Rejected, domain.RejectedEntry{
				Slug: s.Ref.Slug, Category: s.Ref.Category, Score: s.TotalScore, Reason: reason,
			})
			if p.autoArchive && !r.opts.DryRun && p.archiver != nil {
				if dest, err := p.archiver.Archive(ctx, s, reason); err != nil {
					r.fail(domain.StageDecide, s.Ref.Slug, "", err)
				} else {
					log.Info("artifact archived", "artifact", key, "destination", dest)
				}
			}
		default:
			r.record.Summary.Review++
		}
	}
}

// RejectReason condenses the first two issues into a short reason.
func RejectReason(issues []string) string {
	if len(issues) == 0 {
		return "below reject threshold"
	}
	return strings.Join(issues[:min(2, len(issues))], "; ")
}

func (p *Pipeline) summarize(record *domain.RunRecord) {
	s := &record.Summary
	s.Scored = len(record.Scores)
	s.Generated = len(record.Generated)
	s.Enriched = len(record.Enriched)
	s.Published = len(record.Published)
	s.Rejected = len(record.Rejected)
	s.Skipped = len(record.Skipped)
	s.Errors = len(record.Errors)

	if s.Scored == 0 {
		return
	}
	var total int
	for _, score := range record.Scores {
		total += score.TotalScore
	}
	s.AverageScore = math.Round(float64(total)/float64(s.Scored)*10) / 10
}

func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, record *domain.RunRecord) {
	if p.notifier == nil {
		log.Warn("notification requested but no notifier configured")
		return
	}
	payload := BuildNotification(*record, p.siteURL)
	if record.DryRun {
		log.Info("dry run: notification not sent", "text", payload.Text)
		return
	}
	if err := p.notifier.Notify(ctx, payload); err != nil {
		log.Warn("notification failed", "error", err)
		return
	}
	log.Info("notification sent")
}
