package quality

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"ArticleFactory/internal/document"
	"ArticleFactory/internal/domain"
)

// requiredSection is one named section the structure dimension looks for.
type requiredSection struct {
	name    string
	markers []string
}

var requiredSections = []requiredSection{
	{SectionSummary, []string{"summary", "quick answer", "at a glance", "tl;dr", "overview"}},
	{SectionGuidance, []string{"how to", "guide", "tips", "guidance"}},
	{SectionFAQ, []string{"faq", "frequently asked", "questions"}},
	{SectionAttribution, []string{"sources", "references", "about the author", "attribution", "credits"}},
}

var (
	placeholderTokens = []string{"{{", "}}", "[insert", "todo", "lorem ipsum", "placeholder"}
	nullLeakExpr      = regexp.MustCompile(`\b(null|undefined)\b`)
	openTagExpr       = regexp.MustCompile(`<([A-Za-z][\w.:-]*)([^<>]*?)(/?)>`)
	closeTagExpr      = regexp.MustCompile(`</[A-Za-z][\w.:-]*\s*>`)
)

// analysis is the parsed view of one artifact shared by all dimensions.
type analysis struct {
	exists    bool
	raw       string
	parts     document.Parts
	meta      document.Meta
	metaErr   error
	body      *goquery.Document
	words     []string
	headings  []string
	container string
}

func analyze(content []byte, exists bool, container string) *analysis {
	a := &analysis{
		exists:    exists,
		raw:       string(content),
		parts:     document.Split(content),
		container: container,
	}
	a.meta, a.metaErr = document.ParseMeta(a.parts.Frontmatter)

	body, err := goquery.NewDocumentFromReader(strings.NewReader(a.parts.Body))
	if err != nil {
		body, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	a.body = body

	text := body.Clone()
	text.Find("script, style").Remove()
	a.words = strings.Fields(text.Text())

	body.Find("h2").Each(func(_ int, s *goquery.Selection) {
		a.headings = append(a.headings, strings.TrimSpace(s.Text()))
	})
	return a
}

func (a *analysis) text() string {
	return strings.Join(a.words, " ")
}

// Required section names, in the order the structure dimension checks them.
const (
	SectionSummary     = "summary"
	SectionGuidance    = "guidance"
	SectionFAQ         = "FAQ"
	SectionAttribution = "attribution"
)

// SectionMatcher returns a predicate that reports whether a heading counts as
// the named required section. Unknown names never match.
func SectionMatcher(name string) func(title string) bool {
	for _, req := range requiredSections {
		if req.name == name {
			return func(title string) bool { return hasSection([]string{title}, req) }
		}
	}
	return func(string) bool { return false }
}

func hasSection(headings []string, req requiredSection) bool {
	for _, h := range headings {
		lower := strings.ToLower(h)
		for _, marker := range req.markers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

func scoreLength(a *analysis, m *domain.QualityMetrics) (int, []string) {
	n := len(a.words)
	m.WordCount = n
	switch {
	case n < wordsCritical:
		return 20, []string{fmt.Sprintf("word count critically low (%d < %d)", n, wordsCritical)}
	case n < wordsLow:
		return 50, []string{fmt.Sprintf("word count low (%d < %d)", n, wordsLow)}
	case n < wordsTarget:
		return 75, []string{fmt.Sprintf("word count below target (%d < %d)", n, wordsTarget)}
	case n <= wordsExcess:
		return 100, nil
	default:
		return 85, []string{fmt.Sprintf("word count excessive (%d > %d)", n, wordsExcess)}
	}
}

func scoreStructure(a *analysis, m *domain.QualityMetrics) (int, []string) {
	score := 100
	var issues []string

	n := len(a.headings)
	m.SectionCount = n
	switch {
	case n < sectionsTarget:
		score -= penaltyFewSections
		if n < sectionsFloor {
			score -= penaltyBelowFloor
		}
		issues = append(issues, fmt.Sprintf("too few sections (%d < %d)", n, sectionsTarget))
	case n < sectionsIdeal:
		score -= penaltyBelowIdeal
		issues = append(issues, fmt.Sprintf("section count below ideal (%d < %d)", n, sectionsIdeal))
	}

	present := make([]bool, len(requiredSections))
	for i, req := range requiredSections {
		present[i] = hasSection(a.headings, req)
		if !present[i] {
			score -= penaltyMissingNeeded
			issues = append(issues, fmt.Sprintf("missing %s section", req.name))
		}
	}
	m.HasSummary, m.HasGuidance, m.HasFAQ, m.HasAttribution = present[0], present[1], present[2], present[3]
	m.HasRequiredSections = present[0] && present[1] && present[2] && present[3]

	return clamp(score), issues
}

func scoreSEO(a *analysis, m *domain.QualityMetrics) (int, []string) {
	score := 100
	var issues []string
	meta := a.meta

	if strings.TrimSpace(meta.Title) == "" {
		score -= penaltyNoTitle
		issues = append(issues, "missing title")
	}

	desc := strings.TrimSpace(meta.Description)
	m.DescriptionLength = len([]rune(desc))
	switch {
	case desc == "":
		score -= penaltyNoDescription
		issues = append(issues, "missing description")
	case m.DescriptionLength < descriptionMin || m.DescriptionLength > descriptionMax:
		score -= penaltyDescLength
		issues = append(issues, fmt.Sprintf("description length %d outside %d-%d", m.DescriptionLength, descriptionMin, descriptionMax))
	}

	if meta.Schema == nil && a.body.Find(`script[type="application/ld+json"]`).Length() == 0 {
		score -= penaltyNoSchema
		issues = append(issues, "missing structured data")
	}
	if strings.TrimSpace(meta.Canonical) == "" {
		score -= penaltyNoCanonical
		issues = append(issues, "missing canonical URL")
	}
	if len(meta.Keywords) == 0 {
		score -= penaltyNoKeywords
		issues = append(issues, "missing keywords")
	}

	refs := a.body.Find(`a[href^="/"]`).Length()
	m.CrossReferenceCount = refs
	if refs < minCrossReferences {
		score -= penaltyFewCrossRefs
		issues = append(issues, fmt.Sprintf("too few internal links (%d < %d)", refs, minCrossReferences))
	}

	return clamp(score), issues
}

func scoreContent(a *analysis, m *domain.QualityMetrics) (int, []string) {
	score := 100
	var issues []string

	recs := a.body.Find(".recommendation").Length()
	m.RecommendationCount = recs
	switch {
	case recs == 0:
		score -= penaltyNoRecs
		issues = append(issues, "no recommendations")
	case recs < recommendationsTarget:
		score -= penaltyFewRecs
		issues = append(issues, fmt.Sprintf("too few recommendations (%d < %d)", recs, recommendationsTarget))
	}

	if word, ok := repeatedRun(a.words); ok {
		score -= penaltyRepetition
		issues = append(issues, fmt.Sprintf("repeated words: %q", word))
	}

	text := a.text()
	lower := strings.ToLower(text)
	for _, token := range placeholderTokens {
		if strings.Contains(lower, token) {
			score -= penaltyPlaceholder
			issues = append(issues, fmt.Sprintf("placeholder text found: %q", token))
			break
		}
	}

	if leak := nullLeakExpr.FindString(text); leak != "" {
		score -= penaltyNullLeak
		issues = append(issues, fmt.Sprintf("template value leaked: %q", leak))
	}

	return clamp(score), issues
}

func repeatedRun(words []string) (string, bool) {
	run, prev := 0, ""
	for _, w := range words {
		w = strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if w == "" {
			run, prev = 0, ""
			continue
		}
		if w == prev {
			run++
		} else {
			run, prev = 1, w
		}
		if run >= repeatRun {
			return w, true
		}
	}
	return "", false
}

func scoreValidity(a *analysis, m *domain.QualityMetrics) (int, []string) {
	m.Exists = a.exists
	if !a.exists {
		return 0, []string{"artifact file not found"}
	}

	score := 100
	var issues []string

	if !a.parts.HasFrontmatter || a.metaErr != nil {
		score -= penaltyNoHeader
		issues = append(issues, "missing or unparseable frontmatter")
	}

	name := regexp.QuoteMeta(a.container)
	opened := regexp.MustCompile(`<` + name + `\b`).MatchString(a.parts.Body)
	closed := regexp.MustCompile(`</` + name + `\s*>`).MatchString(a.parts.Body)
	if !opened || !closed {
		score -= penaltyNoContainer
		issues = append(issues, fmt.Sprintf("wrapping <%s> not opened and closed", a.container))
	}

	opens, closes := tagBalance(a.parts.Body)
	if diff := opens - closes; diff > tagTolerance || diff < -tagTolerance {
		score -= penaltyTagBalance
		issues = append(issues, fmt.Sprintf("unbalanced tags (%d open, %d close)", opens, closes))
	}

	if len(a.parts.Imports) == 0 {
		score -= penaltyNoImport
		issues = append(issues, "missing import statement")
	}

	return clamp(score), issues
}

func tagBalance(body string) (opens, closes int) {
	for _, m := range openTagExpr.FindAllStringSubmatch(body, -1) {
		if m[3] == "/" || isVoidTag(strings.ToLower(m[1])) {
			continue
		}
		opens++
	}
	closes = len(closeTagExpr.FindAllString(body, -1))
	return opens, closes
}

func isVoidTag(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "source", "track", "wbr":
		return true
	}
	return false
}
