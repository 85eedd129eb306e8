package domain

import "time"

// RunOptions echoes the switches a pipeline run was started with.
type RunOptions struct {
	DryRun        bool `json:"dryRun"`
	GenerateCount int  `json:"generateCount"`
	EnrichLimit   int  `json:"enrichLimit"`
	SkipGenerate  bool `json:"skipGenerate"`
	SkipEnrich    bool `json:"skipEnrich"`
	Notify        bool `json:"notify"`
	ValidateFacts bool `json:"validateFacts"`
}

// GeneratedEntry records a backlog item turned into a new artifact.
type GeneratedEntry struct {
	Slug     string `json:"slug"`
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
	DryRun   bool   `json:"dryRun,omitempty"`
}

// EnrichedEntry records one improvement attempt and its score delta.
type EnrichedEntry struct {
	Slug        string `json:"slug"`
	Category    string `json:"category"`
	BeforeScore int    `json:"beforeScore"`
	AfterScore  int    `json:"afterScore"`
	Estimated   bool   `json:"estimated,omitempty"`
}

// Delta is afterScore minus beforeScore; negative values are regressions.
func (e EnrichedEntry) Delta() int {
	return e.AfterScore - e.BeforeScore
}

// PublishedEntry is an artifact at or above the auto-publish gate.
type PublishedEntry struct {
	Slug     string `json:"slug"`
	Category string `json:"category"`
	Score    int    `json:"score"`
}

// RejectedEntry is an artifact below the reject gate.
type RejectedEntry struct {
	Slug     string `json:"slug"`
	Category string `json:"category"`
	Score    int    `json:"score"`
	Reason   string `json:"reason"`
}

// SkippedEntry is a backlog item that was deliberately not generated.
type SkippedEntry struct {
	Slug    string `json:"slug"`
	Keyword string `json:"keyword"`
	Reason  string `json:"reason"`
}

// Pipeline stages used in error entries.
const (
	StageGenerate = "generate"
	StageScore    = "score"
	StageEnrich   = "enrich"
	StageDecide   = "decide"
)

// ErrorEntry is an isolated per-item failure.
type ErrorEntry struct {
	Stage   string `json:"stage"`
	Slug    string `json:"slug,omitempty"`
	Keyword string `json:"keyword,omitempty"`
	Error   string `json:"error"`
}

// RunSummary holds the aggregate counters of a run.
type RunSummary struct {
	Scored       int     `json:"scored"`
	Generated    int     `json:"generated"`
	Enriched     int     `json:"enriched"`
	Published    int     `json:"published"`
	Rejected     int     `json:"rejected"`
	Review       int     `json:"review"`
	Skipped      int     `json:"skipped"`
	Errors       int     `json:"errors"`
	AverageScore float64 `json:"averageScore"`
}

// RunHistoryEntry is one line of run history.
type RunHistoryEntry struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Summary    RunSummary
}

// RunRecord is the audit log of one pipeline execution.
type RunRecord struct {
	ID            string                  `json:"id"`
	Timestamp     time.Time               `json:"timestamp"`
	FinishedAt    time.Time               `json:"finishedAt"`
	DryRun        bool                    `json:"dryRun"`
	Options       RunOptions              `json:"options"`
	Generated     []GeneratedEntry        `json:"generated"`
	Enriched      []EnrichedEntry         `json:"enriched"`
	Published     []PublishedEntry        `json:"published"`
	Rejected      []RejectedEntry         `json:"rejected"`
	Skipped       []SkippedEntry          `json:"skipped"`
	Errors        []ErrorEntry            `json:"errors"`
	InitialScores map[string]QualityScore `json:"initialScores"`
	Scores        map[string]QualityScore `json:"scores"`
	Summary       RunSummary              `json:"summary"`
}

// NewRunRecord starts an empty record with non-nil lists so the JSON form
// always carries every key.
func NewRunRecord(id string, startedAt time.Time, opts RunOptions) *RunRecord {
	return &RunRecord{
		ID:            id,
		Timestamp:     startedAt.UTC(),
		DryRun:        opts.DryRun,
		Options:       opts,
		Generated:     []GeneratedEntry{},
		Enriched:      []EnrichedEntry{},
		Published:     []PublishedEntry{},
		Rejected:      []RejectedEntry{},
		Skipped:       []SkippedEntry{},
		Errors:        []ErrorEntry{},
		InitialScores: map[string]QualityScore{},
		Scores:        map[string]QualityScore{},
	}
}
