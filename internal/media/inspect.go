package media

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/fumiama/go-docx"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// ErrUnsupported is returned for file types that cannot be attached
var ErrUnsupported = errors.New("unsupported attachment type")

// Kind is the detected document type of an attachment
type Kind string

const (
	KindPDF      Kind = "pdf"
	KindDOCX     Kind = "docx"
	KindHTML     Kind = "html"
	KindMarkdown Kind = "markdown"
	KindText     Kind = "text"
)

// KindForFile maps a filename extension onto a Kind
func KindForFile(name string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF, nil
	case ".docx":
		return KindDOCX, nil
	case ".html", ".htm":
		return KindHTML, nil
	case ".md", ".markdown":
		return KindMarkdown, nil
	case ".txt":
		return KindText, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}
}

// Summary is what inspection learns about a document. Contents are not kept.
type Summary struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title,omitempty"`
	Pages int    `json:"pages,omitempty"`
	Words int    `json:"words"`
}

// Inspect reads enough of a document to describe it
func Inspect(name string, data []byte) (Summary, error) {
	kind, err := KindForFile(name)
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	switch kind {
	case KindPDF:
		s, err = inspectPDF(data)
	case KindDOCX:
		s, err = inspectDOCX(data)
	case KindHTML:
		s, err = inspectHTML(data)
	case KindMarkdown:
		s, err = inspectMarkdown(data)
	default:
		s, err = inspectText(data)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("inspect %s: %w", name, err)
	}
	s.Kind = kind
	if s.Title == "" {
		s.Title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	return s, nil
}

func inspectPDF(data []byte) (s Summary, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Summary{}, err
	}

	s.Pages = reader.NumPage()
	s.Title = strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text())
	for i := 1; i <= s.Pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		s.Words += len(strings.Fields(content))
	}
	return s, nil
}

func inspectDOCX(data []byte) (Summary, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		var b strings.Builder
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				if t, ok := rc.(*docx.Text); ok {
					b.WriteString(t.Text)
				}
			}
		}
		line := strings.TrimSpace(b.String())
		if line == "" {
			continue
		}
		if s.Title == "" {
			s.Title = line
		}
		s.Words += len(strings.Fields(line))
	}
	return s, nil
}

func inspectHTML(data []byte) (Summary, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "title":
				if s.Title == "" {
					s.Title = strings.TrimSpace(textContent(n))
				}
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	s.Words = len(strings.Fields(b.String()))
	return s, nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return b.String()
}

func inspectMarkdown(data []byte) (Summary, error) {
	if !utf8.Valid(data) {
		return Summary{}, errors.New("markdown is not valid UTF-8")
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(data))

	var s Summary
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && s.Title == "" {
			s.Title = strings.TrimSpace(string(h.Text(data)))
		}
		if t, ok := n.(*ast.Text); ok {
			s.Words += len(strings.Fields(string(t.Segment.Value(data))))
		}
		return ast.WalkContinue, nil
	})
	return s, nil
}

func inspectText(data []byte) (Summary, error) {
	if !utf8.Valid(data) {
		return Summary{}, errors.New("text is not valid UTF-8")
	}

	content := string(data)
	var s Summary
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			s.Title = line
			break
		}
	}
	s.Words = len(strings.Fields(content))
	return s, nil
}
