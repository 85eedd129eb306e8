package ports

import (
	"context"
	"errors"
	"time"

	"ArticleFactory/internal/domain"
)

var (
	// ErrNotFound is returned when an artifact or keyword does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyArchived is returned when the archive already holds the artifact.
	ErrAlreadyArchived = errors.New("already archived")
)

// KeywordBacklog is the prioritized topic store the pipeline consumes.
type KeywordBacklog interface {
	TopActive(ctx context.Context, limit int) ([]domain.KeywordOpportunity, error)
	MarkUsed(ctx context.Context, keyword string) error
}

// ArtifactStore exposes the live set of content artifacts.
type ArtifactStore interface {
	List(ctx context.Context) ([]domain.ArtifactRef, error)
	FindBySlug(ctx context.Context, slug string) (domain.ArtifactRef, bool, error)
	Read(ctx context.Context, ref domain.ArtifactRef) (domain.Artifact, error)
	Write(ctx context.Context, ref domain.ArtifactRef, content []byte) error
	Path(ref domain.ArtifactRef) string
}

// GenerateRequest describes one backlog item to turn into an artifact.
type GenerateRequest struct {
	Keyword  string
	Category string
	Slug     string
}

// EnrichRequest carries the low-scoring artifact and its latest evaluation.
type EnrichRequest struct {
	Ref                     domain.ArtifactRef
	Score                   domain.QualityScore
	ExistingRecommendations []string
}

// Result reports what an external capability did. A non-nil error from the
// call means the capability did not succeed and nothing may be assumed about
// Result.
type Result struct {
	Ref    domain.ArtifactRef
	Output string
}

// Generator produces a new artifact on durable storage.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (Result, error)
}

// Enricher rewrites or extends an existing artifact in place.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, req EnrichRequest) (Result, error)
}

// Archiver moves a rejected artifact out of the live set.
type Archiver interface {
	Archive(ctx context.Context, score domain.QualityScore, reason string) (string, error)
}

// Scorer evaluates an artifact against the quality rubric.
type Scorer interface {
	Score(ctx context.Context, ref domain.ArtifactRef) (domain.QualityScore, error)
}

// FactOracle validates a named sub-entity against an external catalog.
type FactOracle interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// RunLogger persists a finished run record.
type RunLogger interface {
	Log(ctx context.Context, record domain.RunRecord) (string, error)
}

// Notifier delivers a run summary to operators.
type Notifier interface {
	Notify(ctx context.Context, payload domain.Notification) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
