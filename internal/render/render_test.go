package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/ppiankov/testament/internal/model"
)

func TestRoman(t *testing.T) {
	tests := map[int]string{
		1: "I", 2: "II", 3: "III", 4: "IV", 5: "V", 9: "IX",
		10: "X", 14: "XIV", 40: "XL", 90: "XC", 1994: "MCMXCIV", 0: "",
	}
	for n, want := range tests {
		if got := Roman(n); got != want {
			t.Errorf("Roman(%d): expected '%s', got '%s'", n, want, got)
		}
	}
}

func TestBuild_EmptyFactsUsesPlaceholders(t *testing.T) {
	doc := Build(model.TemplateTraditional, model.Facts{})
	text := doc.Text()

	for _, placeholder := range []string{PlaceholderName, PlaceholderExecutor, PlaceholderCityState} {
		if !strings.Contains(text, placeholder) {
			t.Errorf("Expected placeholder %s in empty render", placeholder)
		}
	}

	for _, key := range []string{"guardian", "digital-assets", "final-wishes", "bequests"} {
		if _, ok := doc.ArticleByKey(key); ok {
			t.Errorf("Expected conditional article %q to be absent", key)
		}
	}

	if len(doc.Articles) != 5 {
		t.Fatalf("Expected 5 base articles, got %d", len(doc.Articles))
	}
	last := doc.Articles[len(doc.Articles)-1]
	if last.Numeral != "V" {
		t.Errorf("Expected last numeral V, got %s", last.Numeral)
	}
}

func TestBuild_MarriedFamilyClause(t *testing.T) {
	facts := model.Facts{
		FullName:      "Jane Smith",
		MaritalStatus: model.MaritalMarried,
		SpouseName:    "John Smith",
	}

	doc := Build(model.TemplateTraditional, facts)
	family, ok := doc.ArticleByKey("family")
	if !ok {
		t.Fatal("Expected family article")
	}
	if !strings.Contains(family.Body, "I am married to John Smith.") {
		t.Errorf("Expected married clause, got '%s'", family.Body)
	}
	if doc.Subtitle != "OF JANE SMITH" {
		t.Errorf("Expected subtitle 'OF JANE SMITH', got '%s'", doc.Subtitle)
	}
	if !strings.Contains(doc.Preamble, "I, Jane Smith,") {
		t.Errorf("Expected name in preamble, got '%s'", doc.Preamble)
	}
}

func TestBuild_ChildrenInline(t *testing.T) {
	facts := model.Facts{Children: []string{"Amy", "Ben", "Cara"}}

	family, _ := Build(model.TemplateTraditional, facts).ArticleByKey("family")
	if !strings.Contains(family.Body, "Amy, Ben, and Cara") {
		t.Errorf("Expected inline children list, got '%s'", family.Body)
	}
	if len(family.Items) != 0 {
		t.Errorf("Expected children inline, not as items")
	}
}

func TestBuild_DigitalAssetsBullets(t *testing.T) {
	facts := model.Facts{
		DigitalAssets: []model.DigitalAssetEntry{
			{AssetType: "Cryptocurrency", Details: "Bitcoin in a Coinbase wallet"},
			{AssetType: "Social Media", Details: "Facebook and Instagram accounts"},
		},
	}

	doc := Build(model.TemplateDigitalAssets, facts)
	article, ok := doc.ArticleByKey("digital-assets")
	if !ok {
		t.Fatal("Expected digital assets article")
	}
	if len(article.Items) != 2 {
		t.Fatalf("Expected exactly 2 bullet items, got %d", len(article.Items))
	}
	if !strings.HasPrefix(article.Items[0], "Cryptocurrency: ") {
		t.Errorf("Expected crypto entry attributed to its category, got '%s'", article.Items[0])
	}
	if !strings.HasPrefix(article.Items[1], "Social Media: ") {
		t.Errorf("Expected social media entry attributed to its category, got '%s'", article.Items[1])
	}
	if !strings.Contains(doc.Text(), "  • Cryptocurrency: ") {
		t.Error("Expected bulleted item in text output")
	}
}

func TestBuild_UnknownTemplateFallsBack(t *testing.T) {
	doc := Build(model.TemplateKind("pirate"), model.Facts{})
	if doc.Template != model.TemplateTraditional {
		t.Errorf("Expected traditional fallback, got '%s'", doc.Template)
	}
}

func TestBuild_BusinessArticle(t *testing.T) {
	doc := Build(model.TemplateBusiness, model.Facts{BusinessName: "Acme Widgets"})
	article, ok := doc.ArticleByKey("business")
	if !ok {
		t.Fatal("Expected business article")
	}
	if !strings.Contains(article.Body, "Acme Widgets") {
		t.Errorf("Expected business name, got '%s'", article.Body)
	}
}

// Every subset of conditional facts must produce a contiguous numeral
// sequence with the template's relative order preserved.
func TestBuild_NumberingOverAllSubsets(t *testing.T) {
	setters := []func(*model.Facts){
		func(f *model.Facts) { f.Guardian = "Sarah Lee" },
		func(f *model.Facts) {
			f.Assets = []model.AssetEntry{{Category: model.AssetVehicle, Description: "my truck"}}
		},
		func(f *model.Facts) {
			f.DigitalAssets = []model.DigitalAssetEntry{{AssetType: "Email Accounts", Details: "gmail"}}
		},
		func(f *model.Facts) { f.FuneralWishes = "I wish to be cremated." },
		func(f *model.Facts) { f.Children = []string{"Amy"} },
	}

	for _, kind := range model.TemplateKinds {
		tmpl := lookupTemplate(kind)
		order := make(map[string]int)
		for i, spec := range tmpl.articles {
			order[spec.key] = i
		}

		for mask := 0; mask < 1<<len(setters); mask++ {
			var facts model.Facts
			for i, set := range setters {
				if mask&(1<<i) != 0 {
					set(&facts)
				}
			}

			doc := Build(kind, facts)
			seen := make(map[string]bool)
			prev := -1
			for i, a := range doc.Articles {
				if a.Numeral != Roman(i+1) {
					t.Errorf("%s mask %05b: article %d numbered %s, expected %s", kind, mask, i, a.Numeral, Roman(i+1))
				}
				if seen[a.Numeral] {
					t.Errorf("%s mask %05b: duplicate numeral %s", kind, mask, a.Numeral)
				}
				seen[a.Numeral] = true
				if order[a.Key] <= prev {
					t.Errorf("%s mask %05b: article %s out of order", kind, mask, a.Key)
				}
				prev = order[a.Key]
			}

			for _, spec := range tmpl.articles {
				_, present := doc.ArticleByKey(spec.key)
				expected := spec.when == nil || spec.when(facts)
				if present != expected {
					t.Errorf("%s mask %05b: article %s present=%v, expected %v", kind, mask, spec.key, present, expected)
				}
			}
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	facts := model.Facts{FullName: "Jane Smith", Children: []string{"Amy", "Ben"}, Guardian: "Sarah Lee"}
	if Render(model.TemplateFamily, facts) != Render(model.TemplateFamily, facts) {
		t.Error("Expected identical output for identical input")
	}
}

func TestExport_Markdown(t *testing.T) {
	doc := Build(model.TemplateTraditional, model.Facts{FullName: "Jane Smith"})

	var buf bytes.Buffer
	if err := Export(&buf, doc, FormatMarkdown); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "# LAST WILL AND TESTAMENT") {
		t.Errorf("Expected markdown title, got %q", out[:40])
	}
	if !strings.Contains(out, "## ARTICLE I: REVOCATION OF PRIOR WILLS") {
		t.Error("Expected article heading in markdown")
	}
}

func TestExport_HTML(t *testing.T) {
	doc := Build(model.TemplateTraditional, model.Facts{})

	var buf bytes.Buffer
	if err := Export(&buf, doc, FormatHTML); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<h1>LAST WILL AND TESTAMENT</h1>") {
		t.Error("Expected h1 title in HTML")
	}
	if !strings.Contains(out, "[YOUR NAME]") {
		t.Error("Expected placeholder to survive as literal text")
	}
}

func TestExport_DOCX(t *testing.T) {
	doc := Build(model.TemplateTraditional, model.Facts{FullName: "Jane Smith"})

	var buf bytes.Buffer
	if err := Export(&buf, doc, FormatDOCX); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	parsed, err := docx.Parse(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Expected valid docx, got %v", err)
	}
	if len(parsed.Document.Body.Items) == 0 {
		t.Error("Expected paragraphs in docx body")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(".md"); err != nil || f != FormatMarkdown {
		t.Errorf("Expected markdown, got %s (%v)", f, err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}
