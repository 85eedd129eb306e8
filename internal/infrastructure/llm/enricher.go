package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"ArticleFactory/internal/document"
	"ArticleFactory/internal/ports"
	"ArticleFactory/internal/quality"
)

// shortSectionWords is the body size under which a section is offered for extension.
const shortSectionWords = 80

// ErrNoChanges is returned when the model's answer changes nothing.
var ErrNoChanges = errors.New("enrichment produced no changes")

type missingSection struct {
	Kind string `json:"kind"`
	section
}

type revision struct {
	Description     string           `json:"description"`
	Sections        []missingSection `json:"sections"`
	Extensions      []section        `json:"extensions"`
	Recommendations []recommendation `json:"recommendations"`
}

type revisionBrief struct {
	Title                   string   `json:"title"`
	Score                   int      `json:"score"`
	Issues                  []string `json:"issues"`
	MissingSections         []string `json:"missingSections"`
	ShortSections           []string `json:"shortSections"`
	ExistingRecommendations []string `json:"existingRecommendations"`
}

const revisionPrompt = `Improve an existing content page. Its current state:
%s
Answer with a JSON object with these fields:
  "description": a 120 to 160 character meta description, or "" to keep the current one
  "sections": one object {"kind", "heading", "paragraphs", "bullets"} per missing section, kind being one of %s
  "extensions": objects {"heading", "paragraphs"} adding paragraphs to the short sections, heading copied exactly
  "recommendations": up to 3 objects {"name", "note"} naming real products not already listed
Never use placeholder text.`

// Enricher revises an artifact in place from a single completion.
type Enricher struct {
	client *Client
	store  ports.ArtifactStore
	opts   Options
}

var _ ports.Enricher = (*Enricher)(nil)

func NewEnricher(client *Client, store ports.ArtifactStore, opts Options) *Enricher {
	return &Enricher{client: client, store: store, opts: opts.withDefaults()}
}

func (e *Enricher) Name() string { return Name }

func (e *Enricher) Enrich(ctx context.Context, req ports.EnrichRequest) (ports.Result, error) {
	res := ports.Result{Ref: req.Ref}

	art, err := e.store.Read(ctx, req.Ref)
	if err != nil {
		return res, fmt.Errorf("enrich %s: %w", req.Ref, err)
	}
	doc, err := document.Parse(art.Content, e.opts.Container)
	if err != nil {
		return res, fmt.Errorf("enrich %s: %w", req.Ref, err)
	}

	brief := e.brief(doc, req)
	raw, err := json.MarshalIndent(brief, "", "  ")
	if err != nil {
		return res, fmt.Errorf("enrich %s: %w", req.Ref, err)
	}
	kinds := `"` + strings.Join(brief.MissingSections, `", "`) + `"`
	if len(brief.MissingSections) == 0 {
		kinds = "(none, leave empty)"
	}

	var rev revision
	if err := e.client.Complete(ctx, fmt.Sprintf(revisionPrompt, raw, kinds), &rev); err != nil {
		return res, fmt.Errorf("enrich %s: %w", req.Ref, err)
	}

	changes, err := apply(doc, rev, slices.Concat(req.ExistingRecommendations, doc.Recommendations()))
	if err != nil {
		return res, fmt.Errorf("enrich %s: %w", req.Ref, err)
	}
	if len(changes) == 0 {
		return res, fmt.Errorf("enrich %s: %w", req.Ref, ErrNoChanges)
	}

	content, err := doc.Render()
	if err != nil {
		return res, fmt.Errorf("enrich %s: %w", req.Ref, err)
	}
	if err := e.store.Write(ctx, req.Ref, content); err != nil {
		return res, fmt.Errorf("enrich %s: %w", req.Ref, err)
	}

	res.Output = strings.Join(changes, "; ")
	e.opts.Logger.Debug("artifact revised", "artifact", req.Ref.String(), "changes", res.Output)
	return res, nil
}

func (e *Enricher) brief(doc *document.Document, req ports.EnrichRequest) revisionBrief {
	meta, _ := doc.Meta()
	b := revisionBrief{
		Title:                   meta.Title,
		Score:                   req.Score.TotalScore,
		Issues:                  req.Score.Issues,
		MissingSections:         missingSections(doc),
		ExistingRecommendations: req.ExistingRecommendations,
	}
	for _, s := range doc.Sections(2) {
		words := 0
		for _, blk := range doc.Blocks[s.Start+1 : s.End] {
			words += len(strings.Fields(blk.Text))
		}
		if words < shortSectionWords {
			b.ShortSections = append(b.ShortSections, s.Title)
		}
	}
	return b
}

func missingSections(doc *document.Document) []string {
	var missing []string
	for _, name := range []string{quality.SectionSummary, quality.SectionGuidance, quality.SectionFAQ, quality.SectionAttribution} {
		if _, ok := doc.FindSection(quality.SectionMatcher(name)); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// apply merges rev into doc and describes each change made. Missing
// sections go in front of the attribution section; attribution itself is
// appended last.
func apply(doc *document.Document, rev revision, existing []string) ([]string, error) {
	var changes []string

	if d := strings.TrimSpace(rev.Description); d != "" {
		if meta, _ := doc.Meta(); meta.Description == "" || len(meta.Description) < 120 {
			if err := doc.SetMeta("description", d); err != nil {
				return nil, err
			}
			changes = append(changes, "description")
		}
	}

	attribution := quality.SectionMatcher(quality.SectionAttribution)
	missing := missingSections(doc)
	for _, s := range rev.Sections {
		kind := matchKind(s.Kind, missing)
		if kind == "" || strings.TrimSpace(s.Heading) == "" {
			continue
		}
		if _, ok := doc.FindSection(quality.SectionMatcher(kind)); ok {
			continue
		}
		body := s.blocks()
		if kind == quality.SectionFAQ && len(body) == 0 {
			continue
		}
		if kind == quality.SectionAttribution {
			doc.InsertSectionBefore(nil, s.Heading, body...)
		} else {
			doc.InsertSectionBefore(attribution, s.Heading, body...)
		}
		changes = append(changes, "added "+s.Heading)
	}

	for _, ext := range rev.Extensions {
		heading := strings.TrimSpace(ext.Heading)
		body := ext.blocks()
		if heading == "" || len(body) == 0 {
			continue
		}
		if doc.AppendToSection(func(title string) bool { return strings.EqualFold(title, heading) }, body...) {
			changes = append(changes, "extended "+heading)
		}
	}

	if cards := recommendationBlocks(rev.Recommendations, existing); len(cards) > 0 {
		if !doc.AppendToSection(quality.SectionMatcher(quality.SectionGuidance), cards...) {
			doc.InsertSectionBefore(attribution, "Top Picks", cards...)
		}
		changes = append(changes, fmt.Sprintf("%d recommendations", len(cards)))
	}

	return changes, nil
}

func matchKind(kind string, missing []string) string {
	for _, m := range missing {
		if strings.EqualFold(kind, m) {
			return m
		}
	}
	return ""
}
