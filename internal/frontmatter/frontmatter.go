// Package frontmatter encodes and decodes the YAML metadata block at the
// top of a content file.
//
// A content file looks like:
//
//	---
//	title: Combat
//	slug: combat
//	parent: mechanics
//	category: rules
//	---
//
//	Body text follows the metadata block.
//
// Recognized keys are mapped onto typed Metadata fields. Every other key
// is opaque custom data: it is preserved in document order and written
// back verbatim on encode, even though the sync engine never interprets
// it.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedMetadata indicates the metadata block is missing or not
// valid YAML. Callers treat this as a per-file error, not a fatal one.
var ErrMalformedMetadata = errors.New("malformed metadata block")

const delimiter = "---"

// Recognized metadata keys. Anything else lands in Metadata.Extra.
const (
	keyTitle    = "title"
	keySlug     = "slug"
	keyParent   = "parent"
	keyCategory = "category"
	keyOrder    = "order"
	keyStatus   = "status"
	keyAuthor   = "author"
	keyEditor   = "editor"
)

// Field is a single custom metadata entry. The value is kept as a raw
// YAML node so arbitrary structures round-trip unchanged.
type Field struct {
	Key   string
	Value *yaml.Node
}

// Metadata is the typed view of a file's frontmatter block.
type Metadata struct {
	Title    string
	Slug     string
	Parent   string // parent page slug, empty when the page is a root
	Category string
	Order    int
	Status   string // draft or published
	Author   string // creator identity
	Editor   string // last updater identity

	// Extra holds unrecognized keys in document order. They pass through
	// decode and encode without interpretation.
	Extra []Field
}

// Decode splits raw file content into typed metadata and body text.
//
// The file must begin with a "---" line; the block runs until the next
// "---" line. Returns ErrMalformedMetadata (wrapped) when the block is
// missing, unterminated, or not valid YAML.
func Decode(raw []byte) (*Metadata, string, error) {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], " \t") != delimiter {
		return nil, "", fmt.Errorf("%w: file does not start with %q", ErrMalformedMetadata, delimiter)
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t") == delimiter {
			end = i
			break
		}
	}
	if end == -1 {
		return nil, "", fmt.Errorf("%w: unterminated metadata block", ErrMalformedMetadata)
	}

	block := strings.Join(lines[1:end], "\n")
	body := strings.Join(lines[end+1:], "\n")
	// A single blank separator line between block and body is formatting,
	// not content.
	body = strings.TrimPrefix(body, "\n")

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}

	meta := &Metadata{}
	if len(doc.Content) == 0 {
		// Empty block is legal: all fields default.
		return meta, body, nil
	}

	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, "", fmt.Errorf("%w: metadata block is not a mapping", ErrMalformedMetadata)
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode := mapping.Content[i]
		valNode := mapping.Content[i+1]

		if err := meta.assign(keyNode.Value, valNode); err != nil {
			return nil, "", err
		}
	}

	return meta, body, nil
}

// assign routes one decoded key/value pair into the typed field or the
// Extra bucket.
func (m *Metadata) assign(key string, val *yaml.Node) error {
	decodeString := func(dst *string) error {
		if err := val.Decode(dst); err != nil {
			return fmt.Errorf("%w: key %q: %v", ErrMalformedMetadata, key, err)
		}
		return nil
	}

	switch key {
	case keyTitle:
		return decodeString(&m.Title)
	case keySlug:
		return decodeString(&m.Slug)
	case keyParent:
		return decodeString(&m.Parent)
	case keyCategory:
		return decodeString(&m.Category)
	case keyStatus:
		return decodeString(&m.Status)
	case keyAuthor:
		return decodeString(&m.Author)
	case keyEditor:
		return decodeString(&m.Editor)
	case keyOrder:
		if err := val.Decode(&m.Order); err != nil {
			return fmt.Errorf("%w: key %q: %v", ErrMalformedMetadata, key, err)
		}
		return nil
	default:
		m.Extra = append(m.Extra, Field{Key: key, Value: val})
		return nil
	}
}

// Encode renders metadata and body back into file content. Recognized
// keys come first in a fixed order; custom keys follow in their original
// order with their original values.
func Encode(meta *Metadata, body string) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}

	addString := func(key, val string) {
		if val == "" {
			return
		}
		mapping.Content = append(mapping.Content,
			scalarNode(key),
			scalarNode(val),
		)
	}

	addString(keyTitle, meta.Title)
	addString(keySlug, meta.Slug)
	addString(keyParent, meta.Parent)
	addString(keyCategory, meta.Category)
	if meta.Order != 0 {
		orderNode := &yaml.Node{}
		if err := orderNode.Encode(meta.Order); err != nil {
			return nil, fmt.Errorf("encode order: %w", err)
		}
		mapping.Content = append(mapping.Content, scalarNode(keyOrder), orderNode)
	}
	addString(keyStatus, meta.Status)
	addString(keyAuthor, meta.Author)
	addString(keyEditor, meta.Editor)

	for _, f := range meta.Extra {
		mapping.Content = append(mapping.Content, scalarNode(f.Key), f.Value)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter)
	buf.WriteByte('\n')

	if len(mapping.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(mapping); err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
	}

	buf.WriteString(delimiter)
	buf.WriteByte('\n')

	if body != "" {
		buf.WriteByte('\n')
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteByte('\n')
		}
	}

	return buf.Bytes(), nil
}

func scalarNode(val string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: val}
}
