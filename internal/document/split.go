package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// Parts is the coarse layout of an artifact file.
type Parts struct {
	HasFrontmatter bool
	Frontmatter    string
	Imports        []string
	Body           string
}

// Split separates the YAML header block, the leading import statements and
// the markup body. It never fails: malformed input simply yields missing parts.
func Split(raw []byte) Parts {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	var parts Parts

	if strings.HasPrefix(text, fence+"\n") {
		rest := text[len(fence)+1:]
		if end := closingFence(rest); end >= 0 {
			parts.HasFrontmatter = true
			parts.Frontmatter = rest[:end]
			text = ""
			if nl := strings.IndexByte(rest[end:], '\n'); nl >= 0 {
				text = rest[end+nl+1:]
			}
		}
	}

	lines := strings.Split(text, "\n")
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "import ") {
			break
		}
		parts.Imports = append(parts.Imports, line)
	}
	parts.Body = strings.Join(lines[i:], "\n")
	return parts
}

func closingFence(s string) int {
	offset := 0
	for offset <= len(s) {
		line := s[offset:]
		end := strings.IndexByte(line, '\n')
		if end >= 0 {
			line = line[:end]
		}
		if strings.TrimRight(line, " \t") == fence {
			return offset
		}
		if end < 0 {
			return -1
		}
		offset += end + 1
	}
	return -1
}

// StringList decodes either a YAML sequence or a comma-separated scalar.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
	case yaml.ScalarNode:
		var out []string
		for _, item := range strings.Split(node.Value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*l = out
	default:
		return fmt.Errorf("keywords: unsupported yaml kind %d", node.Kind)
	}
	return nil
}

// Meta is the subset of header fields the rubric cares about.
type Meta struct {
	Title       string     `yaml:"title,omitempty"`
	Description string     `yaml:"description,omitempty"`
	Keywords    StringList `yaml:"keywords,omitempty"`
	Canonical   string     `yaml:"canonical,omitempty"`
	Schema      any        `yaml:"schema,omitempty"`
}

// ParseMeta decodes the header block.
func ParseMeta(frontmatter string) (Meta, error) {
	var meta Meta
	if strings.TrimSpace(frontmatter) == "" {
		return meta, nil
	}
	if err := yaml.Unmarshal([]byte(frontmatter), &meta); err != nil {
		return Meta{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	return meta, nil
}
