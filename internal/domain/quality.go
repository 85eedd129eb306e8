package domain

// QualityStatus is the scorer's verdict for one evaluation pass.
type QualityStatus string

const (
	QualityPass   QualityStatus = "pass"
	QualityReview QualityStatus = "review"
	QualityFail   QualityStatus = "fail"
)

// Rank orders statuses from worst to best so callers can compare verdicts.
func (s QualityStatus) Rank() int {
	switch s {
	case QualityPass:
		return 2
	case QualityReview:
		return 1
	default:
		return 0
	}
}

// Rubric dimension names.
const (
	DimensionLength    = "length"
	DimensionStructure = "structure"
	DimensionSEO       = "seo"
	DimensionContent   = "content"
	DimensionValidity  = "validity"
	DimensionFacts     = "facts"
)

// QualityMetrics are the raw measurements behind the dimension scores.
type QualityMetrics struct {
	WordCount           int  `json:"wordCount"`
	SectionCount        int  `json:"sectionCount"`
	RecommendationCount int  `json:"recommendationCount"`
	CrossReferenceCount int  `json:"crossReferenceCount"`
	DescriptionLength   int  `json:"descriptionLength"`
	HasSummary          bool `json:"hasSummary"`
	HasGuidance         bool `json:"hasGuidance"`
	HasFAQ              bool `json:"hasFaq"`
	HasAttribution      bool `json:"hasAttribution"`
	HasRequiredSections bool `json:"hasRequiredSections"`
	Exists              bool `json:"exists"`
}

// QualityScore is a transient evaluation of an artifact's current content.
type QualityScore struct {
	Ref        ArtifactRef    `json:"ref"`
	Scores     map[string]int `json:"scores"`
	TotalScore int            `json:"totalScore"`
	Status     QualityStatus  `json:"status"`
	Issues     []string       `json:"issues"`
	Metrics    QualityMetrics `json:"metrics"`
}
