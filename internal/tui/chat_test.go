package tui

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/testament/internal/model"
	"github.com/ppiankov/testament/internal/session"
)

func newTestChat(t *testing.T) *Chat {
	t.Helper()
	notices := &Notices{}
	sess := session.New(session.Options{
		Template: model.TemplateTraditional,
		Stages:   model.StagesConfig{RequiredRoles: []string{"Executor"}},
		Sink:     notices,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return New(sess, nil, notices)
}

func typeText(c *Chat, text string) {
	c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func enter(t *testing.T, c *Chat) tea.Cmd {
	t.Helper()
	_, cmd := c.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

// run executes a command and feeds its message back into the chat
func run(t *testing.T, c *Chat, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("Expected a command")
	}
	c.Update(cmd())
}

func transcript(c *Chat) string {
	var b strings.Builder
	for _, l := range c.lines {
		b.WriteString(l.text)
		b.WriteString("\n")
	}
	return b.String()
}

func TestChat_KeystrokePreview(t *testing.T) {
	c := newTestChat(t)

	typeText(c, "My name is Jane Smith")
	if !strings.Contains(c.document.View(), "Smith") {
		t.Error("Expected the preview pane to show the typed name")
	}
	if !strings.Contains(c.documentTitle(), "preview") {
		t.Errorf("Expected preview title, got %q", c.documentTitle())
	}
	if c.sess.Facts().FullName != "" {
		t.Error("Expected typing alone not to commit facts")
	}
}

func TestChat_SubmitAndReply(t *testing.T) {
	c := newTestChat(t)

	typeText(c, "My name is Jane Smith")
	cmd := enter(t, c)

	if c.sess.Facts().FullName != "Jane Smith" {
		t.Errorf("Expected name committed on enter, got '%s'", c.sess.Facts().FullName)
	}
	if c.input.Value() != "" {
		t.Error("Expected input cleared")
	}
	if !c.thinking {
		t.Error("Expected assistant request in flight")
	}

	run(t, c, cmd)
	if c.thinking {
		t.Error("Expected request finished")
	}
	last := c.lines[len(c.lines)-1]
	if last.kind != lineAssistant || last.text == "" {
		t.Errorf("Expected an assistant line, got %+v", last)
	}
	if c.section != model.SectionPersonal {
		t.Errorf("Expected personal section in status, got '%s'", c.section)
	}
}

func TestChat_StageCommands(t *testing.T) {
	c := newTestChat(t)

	typeText(c, "/advance")
	run(t, c, enter(t, c))
	if c.sess.Stage() != model.StageContacts {
		t.Fatalf("Expected contacts stage, got %s", c.sess.Stage())
	}

	typeText(c, "/advance")
	run(t, c, enter(t, c))
	if !strings.Contains(transcript(c), "Cannot advance") {
		t.Error("Expected blocked advance to be reported")
	}

	typeText(c, "/contact Mary Jones, Executor, mary@example.com")
	if cmd := enter(t, c); cmd != nil {
		t.Error("Expected /contact to run synchronously")
	}
	if len(c.sess.Contacts()) != 1 {
		t.Fatalf("Expected 1 contact, got %d", len(c.sess.Contacts()))
	}
	if !strings.Contains(transcript(c), "Every required role has a reachable contact") {
		t.Error("Expected the contacts completion notice")
	}

	typeText(c, "/advance")
	run(t, c, enter(t, c))
	typeText(c, "/skip")
	enter(t, c)
	if c.sess.Status().Satisfied != true {
		t.Error("Expected documents stage satisfied after skip")
	}
}

func TestChat_ParseContact(t *testing.T) {
	ct, err := parseContact("Tom Brown, alternate executor, 555-123-4567")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ct.Name != "Tom Brown" || ct.Role.Kind != model.RoleAlternateExecutor || ct.Phone != "555-123-4567" {
		t.Errorf("Unexpected contact: %+v", ct)
	}

	if _, err := parseContact("just a name"); err == nil {
		t.Error("Expected usage error without a role")
	}
}

func TestChat_ExportAndAttach(t *testing.T) {
	c := newTestChat(t)
	dir := t.TempDir()

	typeText(c, "My name is Jane Smith")
	enter(t, c)

	out := filepath.Join(dir, "will.md")
	typeText(c, "/export "+out)
	enter(t, c)
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Expected exported file, got %v", err)
	}
	if !strings.Contains(string(data), "Jane Smith") {
		t.Error("Expected exported markdown to include the name")
	}

	notes := filepath.Join(dir, "wishes.txt")
	if err := os.WriteFile(notes, []byte("Funeral wishes\nNo flowers."), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	typeText(c, "/attach "+notes)
	enter(t, c)
	if len(c.sess.Attachments()) != 1 {
		t.Errorf("Expected 1 attachment, got %d", len(c.sess.Attachments()))
	}
}

func TestChat_UnknownCommandAndQuit(t *testing.T) {
	c := newTestChat(t)

	typeText(c, "/dance")
	enter(t, c)
	if !strings.Contains(transcript(c), "Unknown command /dance") {
		t.Error("Expected unknown command warning")
	}

	typeText(c, "/quit")
	cmd := enter(t, c)
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if c.View() != "" {
		t.Error("Expected empty view after quitting")
	}
}
