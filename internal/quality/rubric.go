package quality

import (
	"math"

	"ArticleFactory/internal/domain"
)

// Word-count bands for the length dimension.
const (
	wordsCritical = 500
	wordsLow      = 800
	wordsTarget   = 1200
	wordsExcess   = 3000
)

// Structure dimension.
const (
	sectionsFloor        = 2
	sectionsTarget       = 3
	sectionsIdeal        = 4
	penaltyFewSections   = 30
	penaltyBelowFloor    = 20
	penaltyBelowIdeal    = 10
	penaltyMissingNeeded = 15
)

// SEO dimension.
const (
	descriptionMin       = 120
	descriptionMax       = 160
	minCrossReferences   = 2
	penaltyNoTitle       = 20
	penaltyNoDescription = 25
	penaltyDescLength    = 10
	penaltyNoSchema      = 15
	penaltyNoCanonical   = 15
	penaltyNoKeywords    = 10
	penaltyFewCrossRefs  = 15
)

// Content dimension.
const (
	recommendationsTarget = 3
	repeatRun             = 3
	penaltyNoRecs         = 40
	penaltyFewRecs        = 20
	penaltyRepetition     = 20
	penaltyPlaceholder    = 30
	penaltyNullLeak       = 25
)

// Validity dimension.
const (
	tagTolerance       = 5
	penaltyNoHeader    = 30
	penaltyNoContainer = 30
	penaltyTagBalance  = 15
	penaltyNoImport    = 25
)

// Facts dimension.
const (
	factsPartial     = 70
	factsNone        = 40
	factsOracleError = 80
	factsListed      = 3
)

// Thresholds are the scorer's own status cutoffs.
type Thresholds struct {
	Pass int `yaml:"pass"`
	Fail int `yaml:"fail"`
}

// DefaultThresholds returns pass at 80 and fail below 60.
func DefaultThresholds() Thresholds {
	return Thresholds{Pass: 80, Fail: 60}
}

// Status maps an aggregate score to a verdict.
func (t Thresholds) Status(total int) domain.QualityStatus {
	switch {
	case total >= t.Pass:
		return domain.QualityPass
	case total < t.Fail:
		return domain.QualityFail
	default:
		return domain.QualityReview
	}
}

type weight struct {
	dimension string
	value     float64
}

var baseWeights = []weight{
	{domain.DimensionLength, 0.20},
	{domain.DimensionStructure, 0.20},
	{domain.DimensionSEO, 0.20},
	{domain.DimensionContent, 0.20},
	{domain.DimensionValidity, 0.10},
	{domain.DimensionFacts, 0.10},
}

// Weights returns the aggregation weights. Without the facts dimension its
// share is spread proportionally over the other five, so the result always
// sums to 1.
func Weights(withFacts bool) map[string]float64 {
	out := make(map[string]float64, len(baseWeights))
	if withFacts {
		for _, w := range baseWeights {
			out[w.dimension] = w.value
		}
		return out
	}

	var kept float64
	for _, w := range baseWeights {
		if w.dimension != domain.DimensionFacts {
			kept += w.value
		}
	}
	for _, w := range baseWeights {
		if w.dimension != domain.DimensionFacts {
			out[w.dimension] = w.value / kept
		}
	}
	return out
}

func aggregate(scores map[string]int, weights map[string]float64) int {
	var total float64
	for _, w := range baseWeights {
		if v, ok := weights[w.dimension]; ok {
			total += v * float64(scores[w.dimension])
		}
	}
	return int(math.Round(total))
}

func clamp(v int) int {
	return max(0, min(100, v))
}
