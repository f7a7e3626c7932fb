package render

import (
	"fmt"
	"strings"

	"github.com/ppiankov/testament/internal/model"
)

// Build renders facts into a structured document. It is pure and total:
// any subset of facts, including none, yields a complete document with
// placeholders for what is unknown. Articles are numbered over the
// articles actually present, so conditional articles never leave gaps.
func Build(kind model.TemplateKind, facts model.Facts) model.Document {
	tmpl := lookupTemplate(kind)
	name := orPlaceholder(facts.FullName, PlaceholderName)

	doc := model.Document{
		Template: tmpl.kind,
		Title:    tmpl.title,
		Subtitle: "OF " + strings.ToUpper(name),
		Preamble: fmt.Sprintf("I, %s, a resident of %s, being of sound mind and memory and not acting under duress or undue influence, "+
			"declare this to be my Last Will and Testament.", name, residence(facts)),
	}

	for _, spec := range tmpl.articles {
		if spec.when != nil && !spec.when(facts) {
			continue
		}
		body, items := spec.build(facts)
		doc.Articles = append(doc.Articles, model.Article{
			Key:     spec.key,
			Numeral: Roman(len(doc.Articles) + 1),
			Title:   spec.title,
			Body:    body,
			Items:   items,
		})
	}

	doc.Closing = []string{
		"IN WITNESS WHEREOF, I have signed this Will on the date written below.",
		"",
		"______________________________",
		name + ", Testator",
		"",
		"Date: ____________________",
	}
	return doc
}

// Render returns the plain-text document for facts
func Render(kind model.TemplateKind, facts model.Facts) string {
	return Build(kind, facts).Text()
}

func residence(f model.Facts) string {
	switch {
	case f.City != "" && f.State != "":
		return f.City + ", " + f.State
	case f.City != "":
		return f.City
	case f.Address != "":
		return f.Address
	default:
		return PlaceholderCityState
	}
}
