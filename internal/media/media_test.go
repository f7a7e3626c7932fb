package media

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fumiama/go-docx"
)

// minimalPDF builds a two-page PDF with an Info title and a valid xref table
func minimalPDF(title string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
		fmt.Sprintf("<< /Title (%s) >>", title),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 5 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestInspect_PDF(t *testing.T) {
	s, err := Inspect("deed.pdf", minimalPDF("Deed of Trust"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Kind != KindPDF {
		t.Errorf("Expected pdf kind, got %s", s.Kind)
	}
	if s.Pages != 2 {
		t.Errorf("Expected 2 pages, got %d", s.Pages)
	}
	if s.Title != "Deed of Trust" {
		t.Errorf("Expected title from Info dictionary, got %q", s.Title)
	}
}

func TestInspect_NotAPDF(t *testing.T) {
	if _, err := Inspect("fake.pdf", []byte(strings.Repeat("not a pdf ", 20))); err == nil {
		t.Error("Expected error for invalid PDF")
	}
}

func TestInspect_DOCX(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText("Life Insurance Policy")
	doc.AddParagraph().AddText("Policy number 12345 held with Acme Mutual.")

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("Failed to build docx: %v", err)
	}

	s, err := Inspect("policy.docx", buf.Bytes())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Title != "Life Insurance Policy" {
		t.Errorf("Expected first paragraph as title, got %q", s.Title)
	}
	if s.Words != 10 {
		t.Errorf("Expected 10 words, got %d", s.Words)
	}
}

func TestInspect_HTML(t *testing.T) {
	page := `<html><head><title>Account Statement</title><style>p{}</style></head>
<body><h1>Statement</h1><p>Balance as of May.</p><script>var x = 1;</script></body></html>`

	s, err := Inspect("statement.html", []byte(page))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Title != "Account Statement" {
		t.Errorf("Expected <title> text, got %q", s.Title)
	}
	if s.Words != 5 {
		t.Errorf("Expected 5 body words, got %d", s.Words)
	}
}

func TestInspect_Markdown(t *testing.T) {
	s, err := Inspect("notes.md", []byte("Intro line\n\n# Letter to my children\n\nBe *kind* to each other.\n"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Title != "Letter to my children" {
		t.Errorf("Expected first heading as title, got %q", s.Title)
	}
	if s.Kind != KindMarkdown {
		t.Errorf("Expected markdown kind, got %s", s.Kind)
	}
}

func TestInspect_TextAndFallbackTitle(t *testing.T) {
	s, err := Inspect("wishes.txt", []byte("\n\n  Funeral wishes \nNo flowers please.\n"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Title != "Funeral wishes" || s.Words != 5 {
		t.Errorf("Expected title 'Funeral wishes' and 5 words, got %q and %d", s.Title, s.Words)
	}

	s, err = Inspect("blank.md", []byte("just text"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Title != "blank" {
		t.Errorf("Expected filename fallback title, got %q", s.Title)
	}
}

func TestInspect_Unsupported(t *testing.T) {
	if _, err := Inspect("photo.heic", []byte("x")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestTracker_AttachAndRemove(t *testing.T) {
	tr := NewTracker(1024)

	a, err := tr.Attach("docs/wishes.txt", strings.NewReader("Scatter my ashes at sea."))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if a.Name != "wishes.txt" || a.ID == "" || a.Size != 24 {
		t.Errorf("Unexpected attachment: %+v", a)
	}
	if tr.Count() != 1 {
		t.Errorf("Expected 1 attachment, got %d", tr.Count())
	}

	if err := tr.Remove(a.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if tr.Count() != 0 {
		t.Errorf("Expected 0 attachments, got %d", tr.Count())
	}
	if err := tr.Remove(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTracker_Limits(t *testing.T) {
	tr := NewTracker(8)

	if _, err := tr.Attach("big.txt", strings.NewReader("this is far too long")); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
	if _, err := tr.Attach("empty.txt", strings.NewReader("")); !errors.Is(err, ErrEmpty) {
		t.Errorf("Expected ErrEmpty, got %v", err)
	}
	if _, err := tr.Attach("movie.mov", strings.NewReader("x")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
	if tr.Count() != 0 {
		t.Errorf("Expected failed attachments not to count, got %d", tr.Count())
	}
}

func TestTracker_Recording(t *testing.T) {
	tr := NewTracker(0)
	if tr.Recorded() {
		t.Error("Expected no recording initially")
	}

	tr.Record(90 * time.Second)
	if !tr.Recorded() {
		t.Error("Expected recording to be reported")
	}
	rec, ok := tr.Recording()
	if !ok || rec.Duration != 90*time.Second {
		t.Errorf("Expected 90s recording, got %+v", rec)
	}
}
