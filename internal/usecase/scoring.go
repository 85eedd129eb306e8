package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

// ErrEmptyQuery is returned when a ScoreQuery selects nothing.
var ErrEmptyQuery = errors.New("select an article, a category or all artifacts")

// ScoreQuery selects the artifacts to score outside a pipeline run.
type ScoreQuery struct {
	Article  string
	Category string
	All      bool
}

// Score evaluates the selected artifacts, lowest total first. Unlike a
// pipeline run, a scoring failure aborts the query.
func (p *Pipeline) Score(ctx context.Context, q ScoreQuery) ([]domain.QualityScore, error) {
	refs, err := p.selectRefs(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]domain.QualityScore, 0, len(refs))
	for _, ref := range refs {
		score, err := p.scorer.Score(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", ref, err)
		}
		out = append(out, score)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalScore < out[j].TotalScore })
	return out, nil
}

func (p *Pipeline) selectRefs(ctx context.Context, q ScoreQuery) ([]domain.ArtifactRef, error) {
	if q.Article != "" {
		ref, ok, err := p.store.FindBySlug(ctx, q.Article)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", q.Article, err)
		}
		if !ok {
			return nil, fmt.Errorf("article %q: %w", q.Article, ports.ErrNotFound)
		}
		return []domain.ArtifactRef{ref}, nil
	}
	if !q.All && q.Category == "" {
		return nil, ErrEmptyQuery
	}

	refs, err := p.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	if q.All {
		return refs, nil
	}
	var out []domain.ArtifactRef
	for _, ref := range refs {
		if ref.Category == q.Category {
			out = append(out, ref)
		}
	}
	return out, nil
}
