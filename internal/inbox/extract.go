package inbox

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/nhle/inbox-summarizer/internal/model"
)

// maxPartDepth bounds the traversal below the root: the root's direct
// children and their children are visited, nothing deeper. Triple-nested
// structures (signed/encrypted envelopes inside alternatives) are cut
// off rather than recursed into, keeping extraction cost bounded.
const maxPartDepth = 2

const (
	mimeTextPlain = "text/plain"
	mimeTextHTML  = "text/html"
)

// ExtractBody collapses a message's MIME part tree into one plaintext
// body string.
//
// If the root carries body data directly (single-part message), that
// data wins and any sub-parts are ignored. Otherwise the tree is walked
// breadth-first down to maxPartDepth levels, collecting decoded
// text/plain and text/html leaves in traversal order. All text/plain
// parts are joined with blank lines; failing that, only the first
// text/html part is stripped to visible text; failing that, the
// NoBodySentinel is returned. Extraction never fails: decode errors
// degrade to empty text for the affected part.
func ExtractBody(root *model.ContentPart) string {
	if root == nil {
		return model.NoBodySentinel
	}

	if root.Data != "" {
		text, _ := DecodePart(root.Data)
		if text != "" {
			return text
		}
		return model.NoBodySentinel
	}

	var textParts, htmlParts []string

	collect := func(p *model.ContentPart) {
		if p.Data == "" {
			return
		}
		switch p.MimeType {
		case mimeTextPlain:
			if text, err := DecodePart(p.Data); err == nil {
				textParts = append(textParts, text)
			}
		case mimeTextHTML:
			if text, err := DecodePart(p.Data); err == nil {
				htmlParts = append(htmlParts, text)
			}
		}
	}

	// Explicit queue with a depth counter instead of recursion, so the
	// depth cap is enforced structurally.
	type item struct {
		part  *model.ContentPart
		depth int
	}

	queue := make([]item, 0, len(root.Parts))
	for i := range root.Parts {
		queue = append(queue, item{&root.Parts[i], 1})
	}

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		collect(it.part)

		if it.depth >= maxPartDepth {
			continue
		}
		for i := range it.part.Parts {
			queue = append(queue, item{&it.part.Parts[i], it.depth + 1})
		}
	}

	switch {
	case len(textParts) > 0:
		return strings.Join(textParts, "\n\n")
	case len(htmlParts) > 0:
		return StripHTML(htmlParts[0])
	default:
		return model.NoBodySentinel
	}
}

// nonContentTags are skipped entirely when rendering HTML to text.
var nonContentTags = map[string]bool{
	"style":    true,
	"script":   true,
	"noscript": true,
	"iframe":   true,
	"head":     true,
}

// blockTags get a newline appended after their content.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// StripHTML renders an HTML fragment to its visible text. The parser is
// lenient, so malformed markup degrades to whatever text is recoverable
// rather than an error.
func StripHTML(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && nonContentTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			sb.WriteString("\n")
		}
	}
	walk(doc)

	return collapseBlankLines(sb.String())
}

// collapseBlankLines trims each line and squeezes runs of blank lines
// down to a single blank line.
func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
