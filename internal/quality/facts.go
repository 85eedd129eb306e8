package quality

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ArticleFactory/internal/document"
	"ArticleFactory/internal/factcheck"
	"ArticleFactory/internal/ports"
)

var interrogatives = map[string]bool{
	"what": true, "why": true, "how": true, "when": true, "where": true,
	"which": true, "who": true, "whom": true, "whose": true, "can": true,
	"should": true, "is": true, "are": true, "do": true, "does": true,
	"will": true, "would": true, "could": true,
}

var nonEntityPhrases = []string{
	"key takeaways", "final thoughts", "conclusion", "top picks", "overview",
	"summary", "frequently asked", "related", "sources", "our verdict",
}

// RecommendationNames extracts the names of recommendation cards that look
// like real entities rather than questions or section labels.
func RecommendationNames(body *goquery.Document) []string {
	var names []string
	for _, name := range cardNames(body) {
		if looksLikeEntity(name) {
			names = append(names, name)
		}
	}
	return names
}

// ExistingRecommendations lists every recommendation card name in raw
// artifact content, unfiltered.
func ExistingRecommendations(content []byte) []string {
	body, err := goquery.NewDocumentFromReader(strings.NewReader(document.Split(content).Body))
	if err != nil {
		return nil
	}
	return cardNames(body)
}

func cardNames(body *goquery.Document) []string {
	var names []string
	body.Find(".recommendation").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.AttrOr("data-name", ""))
		if name == "" {
			name = strings.TrimSpace(s.Find("h3, h4").First().Text())
		}
		if name != "" {
			names = append(names, name)
		}
	})
	return names
}

func looksLikeEntity(name string) bool {
	if name == "" || strings.Contains(name, "?") {
		return false
	}
	lower := strings.ToLower(name)
	first := strings.Fields(lower)[0]
	if interrogatives[first] {
		return false
	}
	for _, phrase := range nonEntityPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

func scoreFacts(ctx context.Context, oracle ports.FactOracle, a *analysis) (int, []string) {
	names := RecommendationNames(a.body)
	if len(names) == 0 {
		return 100, nil
	}

	verdicts := factcheck.Check(ctx, oracle, names)

	var invalid []string
	seen := map[string]bool{}
	for _, v := range verdicts {
		if v.Err != nil {
			return factsOracleError, []string{fmt.Sprintf("fact validation unavailable: %v", v.Err)}
		}
		if !v.Valid && !seen[v.Name] {
			seen[v.Name] = true
			invalid = append(invalid, v.Name)
		}
	}

	switch {
	case len(invalid) == 0:
		return 100, nil
	case len(seen) == len(uniqueNames(names)):
		return factsNone, []string{"no recommendations could be verified"}
	default:
		listed := invalid
		suffix := ""
		if len(listed) > factsListed {
			listed, suffix = listed[:factsListed], "..."
		}
		return factsPartial, []string{fmt.Sprintf("unverified recommendations: %s%s", strings.Join(listed, ", "), suffix)}
	}
}

func uniqueNames(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}
