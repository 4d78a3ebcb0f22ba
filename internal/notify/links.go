package notify

import (
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// ExtractLinks returns the slugs a body links to, in order of first
// appearance, deduplicated. Two link forms are recognized:
//
//   - wiki links: [[combat]] and [[combat|Fighting]]
//   - markdown links with internal destinations: [Fighting](combat.md)
//
// External destinations (anything with a scheme) and fragments are
// ignored.
func ExtractLinks(body string) []string {
	var (
		links []string
		seen  = make(map[string]bool)
	)
	add := func(slug string) {
		if slug == "" || seen[slug] {
			return
		}
		seen[slug] = true
		links = append(links, slug)
	}

	for _, target := range wikiLinks(body) {
		add(target)
	}

	source := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(source))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*ast.Link); ok {
			add(slugFromDestination(string(link.Destination)))
		}
		return ast.WalkContinue, nil
	})

	return links
}

// wikiLinks scans for [[target]] and [[target|label]] forms.
func wikiLinks(body string) []string {
	var targets []string
	for {
		start := strings.Index(body, "[[")
		if start == -1 {
			break
		}
		rest := body[start+2:]
		end := strings.Index(rest, "]]")
		if end == -1 {
			break
		}

		target := rest[:end]
		if i := strings.IndexByte(target, '|'); i != -1 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target != "" && !strings.ContainsAny(target, "\n[") {
			targets = append(targets, target)
		}

		body = rest[end+2:]
	}
	return targets
}

// slugFromDestination reduces an internal markdown link destination to a
// slug: "rules/combat.md" -> "combat". External URLs and fragment-only
// links return empty.
func slugFromDestination(dest string) string {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.ContainsRune(dest, ':') {
		return ""
	}
	if i := strings.IndexByte(dest, '#'); i != -1 {
		dest = dest[:i]
	}
	dest = strings.TrimSuffix(dest, path.Ext(dest))
	return path.Base(dest)
}
