package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/infrastructure/artifacts"
	"ArticleFactory/internal/ports"
	"ArticleFactory/internal/quality"
)

var filler = []string{"salmon", "pairs", "beautifully", "with", "bright", "acidic", "pinot", "because", "fat", "needs", "lift"}

// page renders an artifact with controllable rubric inputs.
type page struct {
	words    int
	sections []string
	meta     bool
	recs     int
	links    int
}

var allSections = []string{"Quick Answer", "How to Pair", "FAQ", "Sources"}

// excellentPage scores 100 on every dimension.
func excellentPage() page {
	return page{words: 1800, sections: allSections, meta: true, recs: 3, links: 2}
}

// reviewPage lands inside the enrichment window (77 without facts).
func reviewPage() page {
	return page{words: 1000, sections: allSections[:2], meta: true, recs: 1, links: 2}
}

// thinPage lands below the reject gate.
func thinPage() page {
	return page{words: 100}
}

func (p page) build() []byte {
	var sb strings.Builder
	if p.meta {
		sb.WriteString("---\ntitle: A Page\n")
		sb.WriteString("description: " + strings.Repeat("d", 140) + "\n")
		sb.WriteString("keywords: [wine]\ncanonical: https://example.com/x\nschema:\n  type: Article\n---\n")
	}
	sb.WriteString("import Layout from '../../layouts/Layout.astro';\n\n<Layout>\n")

	words := make([]string, p.words)
	for i := range words {
		words[i] = filler[i%len(filler)]
	}
	if len(p.sections) == 0 {
		sb.WriteString("<p>" + strings.Join(words, " ") + "</p>\n")
	}
	per := 0
	if len(p.sections) > 0 {
		per = p.words / len(p.sections)
	}
	for i, title := range p.sections {
		sb.WriteString("<h2>" + title + "</h2>\n<p>" + strings.Join(words[i*per:(i+1)*per], " ") + "</p>\n")
	}
	for i := 0; i < p.recs; i++ {
		name := fmt.Sprintf("Estate Number %d", i+1)
		sb.WriteString(fmt.Sprintf("<div class=\"recommendation\" data-name=%q><h3>%s</h3></div>\n", name, name))
	}
	for i := 0; i < p.links; i++ {
		sb.WriteString(fmt.Sprintf("<a href=\"/pairings/other-%d\">other</a>\n", i))
	}
	sb.WriteString("</Layout>\n")
	return []byte(sb.String())
}

type fakeBacklog struct {
	mu       sync.Mutex
	items    []domain.KeywordOpportunity
	used     map[string]int
	frozen   bool
	err      error
	requests []int
}

func newBacklog(keywords ...string) *fakeBacklog {
	b := &fakeBacklog{used: map[string]int{}}
	for i, k := range keywords {
		b.items = append(b.items, domain.KeywordOpportunity{
			Keyword: k, Category: "pairings", Priority: 100 - i, Status: domain.KeywordActive,
		})
	}
	return b
}

func (b *fakeBacklog) TopActive(_ context.Context, limit int) ([]domain.KeywordOpportunity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, limit)
	if b.err != nil {
		return nil, b.err
	}
	var out []domain.KeywordOpportunity
	for _, k := range b.items {
		if k.Status == domain.KeywordActive && len(out) < limit {
			out = append(out, k)
		}
	}
	return out, nil
}

func (b *fakeBacklog) MarkUsed(_ context.Context, kw string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.used[kw]++
	if b.frozen {
		return nil
	}
	for i := range b.items {
		if b.items[i].Keyword == kw {
			b.items[i].Status = domain.KeywordUsed
		}
	}
	return nil
}

type fakeGenerator struct {
	store *artifacts.Store
	fail  map[string]error
	calls []ports.GenerateRequest
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(ctx context.Context, req ports.GenerateRequest) (ports.Result, error) {
	g.calls = append(g.calls, req)
	if err := g.fail[req.Keyword]; err != nil {
		return ports.Result{}, err
	}
	ref := domain.ArtifactRef{Category: req.Category, Slug: req.Slug}
	if err := g.store.Write(ctx, ref, excellentPage().build()); err != nil {
		return ports.Result{}, err
	}
	return ports.Result{Ref: ref}, nil
}

// fakeEnricher replaces an artifact's content with the page registered for it.
type fakeEnricher struct {
	store *artifacts.Store
	pages map[string]page
	err   error
	calls []ports.EnrichRequest
}

func (e *fakeEnricher) Name() string { return "fake" }

func (e *fakeEnricher) Enrich(ctx context.Context, req ports.EnrichRequest) (ports.Result, error) {
	e.calls = append(e.calls, req)
	if e.err != nil {
		return ports.Result{}, e.err
	}
	p, ok := e.pages[req.Ref.Key()]
	if !ok {
		p = excellentPage()
	}
	return ports.Result{Ref: req.Ref}, e.store.Write(ctx, req.Ref, p.build())
}

type failingScorer struct {
	inner ports.Scorer
	fail  map[string]bool
}

func (s failingScorer) Score(ctx context.Context, ref domain.ArtifactRef) (domain.QualityScore, error) {
	if s.fail[ref.Key()] {
		return domain.QualityScore{}, errors.New("permission denied")
	}
	return s.inner.Score(ctx, ref)
}

type recordingLogger struct {
	records []domain.RunRecord
	err     error
}

func (l *recordingLogger) Log(_ context.Context, record domain.RunRecord) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	l.records = append(l.records, record)
	return "/logs/" + record.ID + ".json", nil
}

type recordingNotifier struct {
	payloads []domain.Notification
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, payload domain.Notification) error {
	n.payloads = append(n.payloads, payload)
	return n.err
}

type recordingArchiver struct {
	archived []string
}

func (a *recordingArchiver) Archive(_ context.Context, score domain.QualityScore, reason string) (string, error) {
	a.archived = append(a.archived, score.Ref.Key()+": "+reason)
	return "/archive/" + score.Ref.Key(), nil
}

// harness bundles a pipeline with in-memory collaborators.
type harness struct {
	fs        billy.Filesystem
	store     *artifacts.Store
	backlog   *fakeBacklog
	generator *fakeGenerator
	enricher  *fakeEnricher
	runLog    *recordingLogger
	notifier  *recordingNotifier
	archiver  *recordingArchiver
	logs      *bytes.Buffer
	deps      PipelineDeps
}

func newHarness(backlog *fakeBacklog) *harness {
	fs := memfs.New()
	store := artifacts.NewStore(fs, "")
	h := &harness{
		fs:        fs,
		store:     store,
		backlog:   backlog,
		generator: &fakeGenerator{store: store, fail: map[string]error{}},
		enricher:  &fakeEnricher{store: store, pages: map[string]page{}},
		runLog:    &recordingLogger{},
		notifier:  &recordingNotifier{},
		archiver:  &recordingArchiver{},
		logs:      &bytes.Buffer{},
	}
	clock := time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)
	h.deps = PipelineDeps{
		Backlog:         backlog,
		Store:           store,
		Scorer:          quality.NewScorer(store, quality.Options{}),
		Generator:       h.generator,
		Enricher:        h.enricher,
		Archiver:        h.archiver,
		RunLogger:       h.runLog,
		Notifier:        h.notifier,
		Logger:          slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		EstimatedLift:   15,
		SiteURL:         "https://example.com/",
		DefaultCategory: "guides",
		Now:             func() time.Time { return clock },
		NewID:           func() string { return "run-1" },
	}
	return h
}

func (h *harness) pipeline() *Pipeline {
	return NewPipeline(h.deps)
}

func (h *harness) put(category, slug string, p page) domain.ArtifactRef {
	ref := domain.ArtifactRef{Category: category, Slug: slug}
	if err := h.store.Write(context.Background(), ref, p.build()); err != nil {
		panic(err)
	}
	return ref
}

func defaultOptions() domain.RunOptions {
	return domain.RunOptions{GenerateCount: 2, EnrichLimit: 3}
}

// unreadableStore fails Read for selected artifacts but lists them normally.
type unreadableStore struct {
	ports.ArtifactStore
	fail map[string]bool
}

func (s unreadableStore) Read(ctx context.Context, ref domain.ArtifactRef) (domain.Artifact, error) {
	if s.fail[ref.Key()] {
		return domain.Artifact{}, errors.New("permission denied")
	}
	return s.ArtifactStore.Read(ctx, ref)
}
