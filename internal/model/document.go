package model

import (
	"strings"
	"time"
)

// Document is a rendered will. It is derived from Facts and never stored
// as the source of truth.
type Document struct {
	Template TemplateKind `json:"template"`
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle"`
	Preamble string       `json:"preamble"`
	Articles []Article    `json:"articles"`
	Closing  []string     `json:"closing"`
}

// Article is one numbered section of the document
type Article struct {
	Key     string   `json:"key"`     // Stable identifier, e.g. "guardian"
	Numeral string   `json:"numeral"` // Computed Roman numeral
	Title   string   `json:"title"`
	Body    string   `json:"body,omitempty"`
	Items   []string `json:"items,omitempty"` // Rendered as a bulleted sub-list
}

// Heading returns "ARTICLE <N>: <TITLE>"
func (a Article) Heading() string {
	return "ARTICLE " + a.Numeral + ": " + strings.ToUpper(a.Title)
}

// Text renders the canonical plain-text form of the document
func (d Document) Text() string {
	var b strings.Builder
	b.WriteString(d.Title)
	b.WriteString("\n")
	b.WriteString(d.Subtitle)
	b.WriteString("\n\n")
	b.WriteString(d.Preamble)
	b.WriteString("\n")

	for _, a := range d.Articles {
		b.WriteString("\n")
		b.WriteString(a.Heading())
		b.WriteString("\n")
		if a.Body != "" {
			b.WriteString(a.Body)
			b.WriteString("\n")
		}
		for _, item := range a.Items {
			b.WriteString("  • ")
			b.WriteString(item)
			b.WriteString("\n")
		}
	}

	if len(d.Closing) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(d.Closing, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// ArticleByKey returns the article with the given key, if present
func (d Document) ArticleByKey(key string) (Article, bool) {
	for _, a := range d.Articles {
		if a.Key == key {
			return a, true
		}
	}
	return Article{}, false
}

// MessageRole identifies who produced an utterance
type MessageRole string

const (
	MessageUser      MessageRole = "user"
	MessageAssistant MessageRole = "assistant"
)

// Message is one transcript entry
type Message struct {
	Role MessageRole `json:"role" yaml:"role"`
	Text string      `json:"text" yaml:"text"`
	At   time.Time   `json:"at" yaml:"at"`
}
