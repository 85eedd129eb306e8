package usecase

import (
	"context"
	"errors"
	"fmt"

	"ArticleFactory/internal/domain"
)

// Archived reports one artifact moved out of the live set.
type Archived struct {
	Score       domain.QualityScore
	Reason      string
	Destination string
}

// Archive re-scores one artifact and moves it to the archive regardless of
// its score. An empty reason falls back to the artifact's first issues.
func (p *Pipeline) Archive(ctx context.Context, slug, reason string) (Archived, error) {
	if p.archiver == nil {
		return Archived{}, errors.New("no archiver configured")
	}
	scores, err := p.Score(ctx, ScoreQuery{Article: slug})
	if err != nil {
		return Archived{}, err
	}
	return p.archive(ctx, scores[0], reason)
}

// ArchiveRejected archives every artifact currently below the reject gate.
// Failures on individual artifacts are joined into the returned error.
func (p *Pipeline) ArchiveRejected(ctx context.Context) ([]Archived, error) {
	if p.archiver == nil {
		return nil, errors.New("no archiver configured")
	}
	scores, err := p.Score(ctx, ScoreQuery{All: true})
	if err != nil {
		return nil, err
	}

	var (
		out  []Archived
		errs []error
	)
	for _, s := range scores {
		if s.TotalScore >= p.gates.Reject {
			continue
		}
		a, err := p.archive(ctx, s, "")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, a)
	}
	return out, errors.Join(errs...)
}

func (p *Pipeline) archive(ctx context.Context, score domain.QualityScore, reason string) (Archived, error) {
	if reason == "" {
		reason = RejectReason(score.Issues)
	}
	dest, err := p.archiver.Archive(ctx, score, reason)
	if err != nil {
		return Archived{}, fmt.Errorf("archive %s: %w", score.Ref, err)
	}
	p.logger.Info("artifact archived", "artifact", score.Ref.Key(), "score", score.TotalScore, "destination", dest)
	return Archived{Score: score, Reason: reason, Destination: dest}, nil
}
