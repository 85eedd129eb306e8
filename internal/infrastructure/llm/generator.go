package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ArticleFactory/internal/document"
	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/ports"
)

// Options shape the rendered artifacts.
type Options struct {
	Container string
	SiteURL   string
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Container == "" {
		o.Container = "Layout"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

type section struct {
	Heading    string   `json:"heading"`
	Paragraphs []string `json:"paragraphs"`
	Bullets    []string `json:"bullets,omitempty"`
}

func (s section) blocks() []document.Block {
	var out []document.Block
	for _, p := range s.Paragraphs {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, document.ParagraphBlock(p))
		}
	}
	if len(s.Bullets) > 0 {
		out = append(out, document.ListBlock(s.Bullets...))
	}
	return out
}

type recommendation struct {
	Name string `json:"name"`
	Note string `json:"note"`
}

type faqEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type draft struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Keywords        []string         `json:"keywords"`
	Summary         string           `json:"summary"`
	Sections        []section        `json:"sections"`
	Recommendations []recommendation `json:"recommendations"`
	FAQ             []faqEntry       `json:"faq"`
	Sources         []string         `json:"sources"`
}

const draftPrompt = `Write a content page for the search keyword %q in the category %q.
Answer with a JSON object with these fields:
  "title": page title, 30 to 60 characters
  "description": meta description, 120 to 160 characters
  "keywords": 3 to 8 search keywords
  "summary": a two or three sentence quick answer
  "sections": 3 to 6 objects {"heading", "paragraphs": [...], "bullets": [...]}, including one practical how-to guide section
  "recommendations": 3 to 5 objects {"name", "note"} naming real, specific products
  "faq": 3 to 5 objects {"question", "answer"}
  "sources": 2 to 5 reference names or URLs
The page should run 1200 to 2500 words. Never use placeholder text.`

// ErrEmptyDraft is returned when the model answers without a title or sections.
var ErrEmptyDraft = errors.New("model returned an empty draft")

// Generator writes a new artifact from a single completion.
type Generator struct {
	client *Client
	store  ports.ArtifactStore
	opts   Options
}

var _ ports.Generator = (*Generator)(nil)

func NewGenerator(client *Client, store ports.ArtifactStore, opts Options) *Generator {
	return &Generator{client: client, store: store, opts: opts.withDefaults()}
}

func (g *Generator) Name() string { return Name }

func (g *Generator) Generate(ctx context.Context, req ports.GenerateRequest) (ports.Result, error) {
	ref := domain.ArtifactRef{Category: req.Category, Slug: req.Slug}

	var d draft
	if err := g.client.Complete(ctx, fmt.Sprintf(draftPrompt, req.Keyword, req.Category), &d); err != nil {
		return ports.Result{Ref: ref}, fmt.Errorf("generate %s: %w", ref, err)
	}
	if strings.TrimSpace(d.Title) == "" || len(d.Sections) == 0 {
		return ports.Result{Ref: ref}, fmt.Errorf("generate %s: %w", ref, ErrEmptyDraft)
	}

	doc, err := g.render(ref, req.Keyword, d)
	if err != nil {
		return ports.Result{Ref: ref}, fmt.Errorf("generate %s: %w", ref, err)
	}
	content, err := doc.Render()
	if err != nil {
		return ports.Result{Ref: ref}, fmt.Errorf("generate %s: %w", ref, err)
	}
	if err := g.store.Write(ctx, ref, content); err != nil {
		return ports.Result{Ref: ref}, fmt.Errorf("generate %s: %w", ref, err)
	}

	g.opts.Logger.Debug("draft written", "artifact", ref.String(), "sections", len(d.Sections), "bytes", len(content))
	return ports.Result{Ref: ref, Output: d.Title}, nil
}

func (g *Generator) render(ref domain.ArtifactRef, keyword string, d draft) (*document.Document, error) {
	keywords := d.Keywords
	if len(keywords) == 0 {
		keywords = []string{keyword}
	}
	meta := document.Meta{
		Title:       d.Title,
		Description: d.Description,
		Keywords:    keywords,
		Canonical:   canonical(g.opts.SiteURL, ref),
		Schema: map[string]string{
			"@context": "https://schema.org",
			"@type":    "Article",
			"headline": d.Title,
		},
	}
	doc, err := document.New(meta, g.opts.Container, layoutImport(g.opts.Container))
	if err != nil {
		return nil, err
	}

	doc.Blocks = append(doc.Blocks, document.HeadingBlock(1, d.Title))
	if s := strings.TrimSpace(d.Summary); s != "" {
		doc.Blocks = append(doc.Blocks, document.HeadingBlock(2, "Quick Answer"), document.ParagraphBlock(s))
	}
	for _, s := range d.Sections {
		doc.Blocks = append(doc.Blocks, document.HeadingBlock(2, s.Heading))
		doc.Blocks = append(doc.Blocks, s.blocks()...)
	}
	if len(d.Recommendations) > 0 {
		doc.Blocks = append(doc.Blocks, document.HeadingBlock(2, "Top Picks"))
		doc.Blocks = append(doc.Blocks, recommendationBlocks(d.Recommendations, nil)...)
	}
	if len(d.FAQ) > 0 {
		doc.Blocks = append(doc.Blocks, document.HeadingBlock(2, "Frequently Asked Questions"))
		doc.Blocks = append(doc.Blocks, faqBlocks(d.FAQ)...)
	}
	if len(d.Sources) > 0 {
		doc.Blocks = append(doc.Blocks, document.HeadingBlock(2, "Sources"), document.ListBlock(d.Sources...))
	}
	return doc, nil
}

// recommendationBlocks renders cards, skipping names already present
// (case-insensitive) and repeats within recs.
func recommendationBlocks(recs []recommendation, existing []string) []document.Block {
	seen := make(map[string]bool, len(existing))
	for _, name := range existing {
		seen[strings.ToLower(strings.TrimSpace(name))] = true
	}
	var out []document.Block
	for _, r := range recs {
		key := strings.ToLower(strings.TrimSpace(r.Name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, document.RecommendationBlock(strings.TrimSpace(r.Name), r.Note))
	}
	return out
}

func faqBlocks(entries []faqEntry) []document.Block {
	var out []document.Block
	for _, e := range entries {
		if strings.TrimSpace(e.Question) == "" {
			continue
		}
		out = append(out, document.HeadingBlock(3, e.Question), document.ParagraphBlock(e.Answer))
	}
	return out
}

func canonical(siteURL string, ref domain.ArtifactRef) string {
	if siteURL == "" {
		return ""
	}
	return strings.TrimRight(siteURL, "/") + "/" + ref.Category + "/" + ref.Slug
}

func layoutImport(container string) string {
	return fmt.Sprintf("import %s from '../../layouts/%s.astro';", container, container)
}
