package document

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// Kind classifies a top-level block inside the wrapping container.
type Kind int

const (
	Raw Kind = iota
	Heading
	Paragraph
	List
	Recommendation
)

func (k Kind) String() string {
	switch k {
	case Heading:
		return "heading"
	case Paragraph:
		return "paragraph"
	case List:
		return "list"
	case Recommendation:
		return "recommendation"
	default:
		return "raw"
	}
}

// Block is one top-level element of the body. Markup is the exact source
// that is written back on Render.
type Block struct {
	Kind   Kind
	Level  int
	Text   string
	Name   string
	Markup string
}

// Section is a heading and the blocks that follow it up to the next heading
// of the same or a higher level. Start is the heading index, End is exclusive.
type Section struct {
	Title string
	Level int
	Start int
	End   int
}

// Document is the structured form of an artifact.
type Document struct {
	front     yaml.Node
	Imports   []string
	Container string
	openTag   string
	Blocks    []Block
}

var (
	// ErrNoContainer is returned when the body has no wrapping container.
	ErrNoContainer = errors.New("document: wrapping container not found")

	tagNameExpr = regexp.MustCompile(`^<\s*([A-Za-z][\w.:-]*)`)
)

// New builds an empty document with the given header and container.
func New(meta Meta, container string, imports ...string) (*Document, error) {
	d := &Document{Container: container, Imports: imports}
	if err := d.front.Encode(meta); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	d.openTag = "<" + container + ">"
	return d, nil
}

// Parse reads an artifact into blocks. container is the wrapping component
// name, matched case-insensitively.
func Parse(raw []byte, container string) (*Document, error) {
	parts := Split(raw)
	d := &Document{Container: container, Imports: parts.Imports}

	if parts.HasFrontmatter && strings.TrimSpace(parts.Frontmatter) != "" {
		var root yaml.Node
		if err := yaml.Unmarshal([]byte(parts.Frontmatter), &root); err != nil {
			return nil, fmt.Errorf("parse frontmatter: %w", err)
		}
		if len(root.Content) > 0 {
			d.front = *root.Content[0]
		}
	}
	if d.front.Kind == 0 {
		d.front = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}

	if err := d.parseBody(parts.Body); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) parseBody(body string) error {
	z := nethtml.NewTokenizer(strings.NewReader(body))

	var (
		inside, closed bool
		depth          int
		cur            blockBuilder
	)

	flush := func() {
		if b, ok := cur.build(); ok {
			d.Blocks = append(d.Blocks, b)
		}
		cur = blockBuilder{}
	}

	for !closed {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return fmt.Errorf("tokenize body: %w", z.Err())
		}
		raw := string(z.Raw())
		tok := z.Token()

		switch tt {
		case nethtml.StartTagToken:
			if !inside {
				if strings.EqualFold(tok.Data, d.Container) {
					inside = true
					d.openTag = raw
					if m := tagNameExpr.FindStringSubmatch(raw); m != nil {
						d.Container = m[1]
					}
				}
				continue
			}
			if depth == 0 {
				cur.start(tok)
			}
			cur.markup.WriteString(raw)
			if isVoid(tok.Data) {
				if depth == 0 {
					flush()
				}
				continue
			}
			depth++
		case nethtml.SelfClosingTagToken:
			if !inside {
				continue
			}
			if depth == 0 {
				cur.start(tok)
				cur.markup.WriteString(raw)
				flush()
				continue
			}
			cur.markup.WriteString(raw)
		case nethtml.EndTagToken:
			if !inside {
				continue
			}
			if depth == 0 {
				if strings.EqualFold(tok.Data, d.Container) {
					closed = true
				}
				continue
			}
			cur.markup.WriteString(raw)
			depth--
			if depth == 0 {
				flush()
			}
		case nethtml.TextToken, nethtml.CommentToken:
			if !inside {
				continue
			}
			if depth > 0 {
				cur.markup.WriteString(raw)
				if tt == nethtml.TextToken {
					cur.text.WriteString(tok.Data)
				}
				continue
			}
			if strings.TrimSpace(raw) != "" {
				d.Blocks = append(d.Blocks, Block{Kind: Raw, Text: strings.TrimSpace(tok.Data), Markup: strings.TrimSpace(raw)})
			}
		}
	}

	if !inside {
		return ErrNoContainer
	}
	if depth > 0 {
		flush()
	}
	return nil
}

type blockBuilder struct {
	tag    string
	attrs  map[string]string
	markup strings.Builder
	text   strings.Builder
}

func (b *blockBuilder) start(tok nethtml.Token) {
	b.tag = tok.Data
	b.attrs = make(map[string]string, len(tok.Attr))
	for _, a := range tok.Attr {
		b.attrs[a.Key] = a.Val
	}
}

func (b *blockBuilder) build() (Block, bool) {
	if b.tag == "" {
		return Block{}, false
	}
	block := Block{
		Markup: strings.TrimSpace(b.markup.String()),
		Text:   strings.Join(strings.Fields(b.text.String()), " "),
	}
	switch {
	case hasClass(b.attrs["class"], "recommendation"):
		block.Kind = Recommendation
		block.Name = strings.TrimSpace(b.attrs["data-name"])
	case len(b.tag) == 2 && b.tag[0] == 'h' && b.tag[1] >= '1' && b.tag[1] <= '6':
		block.Kind = Heading
		block.Level = int(b.tag[1] - '0')
	case b.tag == "p":
		block.Kind = Paragraph
	case b.tag == "ul" || b.tag == "ol":
		block.Kind = List
	default:
		block.Kind = Raw
	}
	return block, true
}

func hasClass(attr, class string) bool {
	for _, c := range strings.Fields(attr) {
		if c == class {
			return true
		}
	}
	return false
}

func isVoid(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "source", "track", "wbr":
		return true
	}
	return false
}

// Meta decodes the header block.
func (d *Document) Meta() (Meta, error) {
	var meta Meta
	if d.front.Kind == 0 {
		return meta, nil
	}
	if err := d.front.Decode(&meta); err != nil {
		return Meta{}, fmt.Errorf("decode frontmatter: %w", err)
	}
	return meta, nil
}

// SetMeta sets one header field, keeping every other field and its order.
func (d *Document) SetMeta(key string, value any) error {
	var val yaml.Node
	if err := val.Encode(value); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if d.front.Kind != yaml.MappingNode {
		d.front = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	for i := 0; i+1 < len(d.front.Content); i += 2 {
		if d.front.Content[i].Value == key {
			d.front.Content[i+1] = &val
			return nil
		}
	}
	d.front.Content = append(d.front.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&val,
	)
	return nil
}

// Sections lists every heading of the given level with its extent.
func (d *Document) Sections(level int) []Section {
	var out []Section
	for i, b := range d.Blocks {
		if b.Kind != Heading || b.Level != level {
			continue
		}
		end := len(d.Blocks)
		for j := i + 1; j < len(d.Blocks); j++ {
			if d.Blocks[j].Kind == Heading && d.Blocks[j].Level <= level {
				end = j
				break
			}
		}
		out = append(out, Section{Title: b.Text, Level: level, Start: i, End: end})
	}
	return out
}

// FindSection returns the first level-2 section whose title satisfies match.
func (d *Document) FindSection(match func(title string) bool) (Section, bool) {
	for _, s := range d.Sections(2) {
		if match(s.Title) {
			return s, true
		}
	}
	return Section{}, false
}

// InsertSectionBefore adds a new level-2 section in front of the first
// section matching before, or at the end of the body when none matches.
func (d *Document) InsertSectionBefore(before func(title string) bool, title string, body ...Block) {
	blocks := append([]Block{HeadingBlock(2, title)}, body...)
	at := len(d.Blocks)
	if before != nil {
		if s, ok := d.FindSection(before); ok {
			at = s.Start
		}
	}
	d.insertAt(at, blocks...)
}

// ReplaceSection swaps the body of the first matching section. It reports
// whether a section was found.
func (d *Document) ReplaceSection(match func(title string) bool, body ...Block) bool {
	s, ok := d.FindSection(match)
	if !ok {
		return false
	}
	rest := append([]Block{}, d.Blocks[s.End:]...)
	d.Blocks = append(append(d.Blocks[:s.Start+1], body...), rest...)
	return true
}

// AppendToSection adds blocks at the end of the first matching section.
func (d *Document) AppendToSection(match func(title string) bool, blocks ...Block) bool {
	s, ok := d.FindSection(match)
	if !ok {
		return false
	}
	d.insertAt(s.End, blocks...)
	return true
}

func (d *Document) insertAt(at int, blocks ...Block) {
	rest := append([]Block{}, d.Blocks[at:]...)
	d.Blocks = append(append(d.Blocks[:at], blocks...), rest...)
}

// Recommendations returns the names of all recommendation blocks.
func (d *Document) Recommendations() []string {
	var names []string
	for _, b := range d.Blocks {
		if b.Kind == Recommendation && b.Name != "" {
			names = append(names, b.Name)
		}
	}
	return names
}

// Render writes the document back to its file form.
func (d *Document) Render() ([]byte, error) {
	var buf bytes.Buffer

	if d.front.Kind == yaml.MappingNode && len(d.front.Content) > 0 {
		front, err := yaml.Marshal(&d.front)
		if err != nil {
			return nil, fmt.Errorf("marshal frontmatter: %w", err)
		}
		buf.WriteString(fence + "\n")
		buf.Write(front)
		buf.WriteString(fence + "\n")
	}

	for _, imp := range d.Imports {
		buf.WriteString(imp + "\n")
	}
	if len(d.Imports) > 0 {
		buf.WriteString("\n")
	}

	open := d.openTag
	if open == "" {
		open = "<" + d.Container + ">"
	}
	buf.WriteString(open + "\n")
	for _, b := range d.Blocks {
		buf.WriteString("  " + b.Markup + "\n")
	}
	buf.WriteString("</" + d.Container + ">\n")
	return buf.Bytes(), nil
}

// HeadingBlock builds an escaped heading.
func HeadingBlock(level int, text string) Block {
	return Block{
		Kind:   Heading,
		Level:  level,
		Text:   text,
		Markup: fmt.Sprintf("<h%d>%s</h%d>", level, html.EscapeString(text), level),
	}
}

// ParagraphBlock builds an escaped paragraph.
func ParagraphBlock(text string) Block {
	return Block{Kind: Paragraph, Text: text, Markup: "<p>" + html.EscapeString(text) + "</p>"}
}

// ListBlock builds an unordered list.
func ListBlock(items ...string) Block {
	var sb strings.Builder
	sb.WriteString("<ul>")
	for _, item := range items {
		sb.WriteString("<li>" + html.EscapeString(item) + "</li>")
	}
	sb.WriteString("</ul>")
	return Block{Kind: List, Text: strings.Join(items, " "), Markup: sb.String()}
}

// RecommendationBlock builds a recommendation card.
func RecommendationBlock(name, note string) Block {
	markup := fmt.Sprintf(`<div class="recommendation" data-name="%s"><h3>%s</h3><p>%s</p></div>`,
		html.EscapeString(name), html.EscapeString(name), html.EscapeString(note))
	return Block{Kind: Recommendation, Name: name, Text: name + " " + note, Markup: markup}
}

// LinkBlock builds a paragraph holding one internal cross-reference.
func LinkBlock(href, label string) Block {
	markup := fmt.Sprintf(`<p><a href="%s">%s</a></p>`, html.EscapeString(href), html.EscapeString(label))
	return Block{Kind: Paragraph, Text: label, Markup: markup}
}
