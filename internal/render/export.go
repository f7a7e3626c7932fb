package render

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/ppiankov/testament/internal/model"
	"github.com/yuin/goldmark"
)

// Format is an export format for a rendered document
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
)

// ParseFormat maps a format name or file extension onto a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "docx", "word":
		return FormatDOCX, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Export writes doc to w in the given format
func Export(w io.Writer, doc model.Document, format Format) error {
	switch format {
	case FormatText:
		_, err := io.WriteString(w, doc.Text())
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(doc))
		return err
	case FormatHTML:
		return writeHTML(w, doc)
	case FormatDOCX:
		return writeDOCX(w, doc)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// Markdown renders the document as markdown
func Markdown(doc model.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(doc.Title))
	fmt.Fprintf(&b, "**%s**\n\n", escapeMarkdown(doc.Subtitle))
	fmt.Fprintf(&b, "%s\n", escapeMarkdown(doc.Preamble))

	for _, a := range doc.Articles {
		fmt.Fprintf(&b, "\n## %s\n\n", escapeMarkdown(a.Heading()))
		if a.Body != "" {
			fmt.Fprintf(&b, "%s\n", escapeMarkdown(a.Body))
		}
		if len(a.Items) > 0 {
			b.WriteString("\n")
			for _, item := range a.Items {
				fmt.Fprintf(&b, "- %s\n", escapeMarkdown(item))
			}
		}
	}

	if len(doc.Closing) > 0 {
		b.WriteString("\n---\n\n")
		for _, line := range doc.Closing {
			if line == "" {
				b.WriteString("\n")
				continue
			}
			fmt.Fprintf(&b, "%s  \n", escapeMarkdown(line))
		}
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "<", `\<`, ">", `\>`, "[", `\[`, "]", `\]`,
)

// escapeMarkdown keeps user text literal. Underscore runs in signature
// lines and bracketed placeholders must not become markup.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func writeHTML(w io.Writer, doc model.Document) error {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(doc)), &body); err != nil {
		return fmt.Errorf("convert markdown: %w", err)
	}

	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		stdhtml.EscapeString(doc.Title+" "+doc.Subtitle), body.String())
	return err
}

func writeDOCX(w io.Writer, doc model.Document) error {
	f := docx.New().WithDefaultTheme()

	f.AddParagraph().Justification("center").AddText(doc.Title).Bold().Size("32")
	f.AddParagraph().Justification("center").AddText(doc.Subtitle).Bold().Size("26")
	f.AddParagraph().AddText(doc.Preamble)

	for _, a := range doc.Articles {
		f.AddParagraph().AddText(a.Heading()).Bold().Size("24")
		if a.Body != "" {
			f.AddParagraph().AddText(a.Body)
		}
		for _, item := range a.Items {
			f.AddParagraph().AddText("• " + item)
		}
	}

	for _, line := range doc.Closing {
		f.AddParagraph().AddText(line)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}
