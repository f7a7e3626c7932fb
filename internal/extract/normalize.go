package extract

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

var htmlTagPattern = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(?:\s[^<>]*)?/?>`)

var markdown = goldmark.New()

// PlainText reduces an utterance to plain prose. Model replies often carry
// markdown emphasis or HTML, which would otherwise break name patterns
// ("**Jane Smith**"). Plain input passes through unchanged apart from
// whitespace normalization.
func PlainText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if htmlTagPattern.MatchString(s) {
		if visible, err := visibleHTMLText(s); err == nil {
			s = visible
		}
	}
	if strings.ContainsAny(s, "*_#`>[") || strings.Contains(s, "\n- ") || strings.HasPrefix(s, "- ") {
		s = markdownText(s)
	}
	return normalizeSpace(s)
}

// visibleHTMLText extracts text nodes, skipping scripts and styles
func visibleHTMLText(s string) (string, error) {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			case "br", "p", "li", "div", "h1", "h2", "h3", "h4", "tr":
				buf.WriteString("\n")
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return buf.String(), nil
}

// markdownText walks the goldmark AST and keeps only text content.
// Each block ends with a newline so list items stay separate sentences.
func markdownText(s string) string {
	src := []byte(s)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var buf strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteString("\n")
				}
			}
		case *ast.String:
			if entering {
				buf.Write(node.Value)
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(src))
				}
			}
		}
		if !entering && n.Type() == ast.TypeBlock {
			buf.WriteString("\n")
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func normalizeSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
