// Package quality scores content artifacts against a fixed rubric.
package quality

import (
	"context"
	"errors"
	"fmt"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

// DefaultContainer is the wrapping component every artifact body must use.
const DefaultContainer = "Layout"

// dimensions run in this order, which is also the order of reported issues.
var dimensions = []struct {
	name string
	eval func(*analysis, *domain.QualityMetrics) (int, []string)
}{
	{domain.DimensionLength, scoreLength},
	{domain.DimensionStructure, scoreStructure},
	{domain.DimensionSEO, scoreSEO},
	{domain.DimensionContent, scoreContent},
	{domain.DimensionValidity, scoreValidity},
}

// Options configure a Scorer.
type Options struct {
	Container  string
	Thresholds Thresholds
	// Oracle enables the facts dimension when set.
	Oracle ports.FactOracle
}

// Scorer evaluates artifacts read from an ArtifactStore.
type Scorer struct {
	store      ports.ArtifactStore
	container  string
	thresholds Thresholds
	oracle     ports.FactOracle
	weights    map[string]float64
}

var _ ports.Scorer = (*Scorer)(nil)

// NewScorer builds a scorer; zero-valued options fall back to defaults.
func NewScorer(store ports.ArtifactStore, opts Options) *Scorer {
	if opts.Container == "" {
		opts.Container = DefaultContainer
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	return &Scorer{
		store:      store,
		container:  opts.Container,
		thresholds: opts.Thresholds,
		oracle:     opts.Oracle,
		weights:    Weights(opts.Oracle != nil),
	}
}

// Thresholds exposes the status cutoffs in use.
func (s *Scorer) Thresholds() Thresholds {
	return s.thresholds
}

// Score reads the artifact's current content and evaluates it. A missing
// artifact is not an error: it scores zero on validity.
func (s *Scorer) Score(ctx context.Context, ref domain.ArtifactRef) (domain.QualityScore, error) {
	art, err := s.store.Read(ctx, ref)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return s.Evaluate(ctx, ref, nil, false), nil
	case err != nil:
		return domain.QualityScore{}, fmt.Errorf("read %s: %w", ref, err)
	}
	return s.Evaluate(ctx, ref, art.Content, true), nil
}

// Evaluate scores raw content without touching storage.
func (s *Scorer) Evaluate(ctx context.Context, ref domain.ArtifactRef, content []byte, exists bool) domain.QualityScore {
	a := analyze(content, exists, s.container)

	result := domain.QualityScore{
		Ref:    ref,
		Scores: make(map[string]int, len(s.weights)),
		Issues: []string{},
	}

	for _, d := range dimensions {
		score, issues := d.eval(a, &result.Metrics)
		result.Scores[d.name] = score
		result.Issues = append(result.Issues, issues...)
	}
	if s.oracle != nil {
		score, issues := scoreFacts(ctx, s.oracle, a)
		result.Scores[domain.DimensionFacts] = score
		result.Issues = append(result.Issues, issues...)
	}

	result.TotalScore = aggregate(result.Scores, s.weights)
	result.Status = s.thresholds.Status(result.TotalScore)
	return result
}
