// Package tui is the interactive chat for drafting a will in the terminal.
// The left pane is the conversation, the right pane is the document,
// re-rendered on every keystroke from what the current draft would add.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/testament/internal/llm"
	"github.com/ppiankov/testament/internal/model"
	"github.com/ppiankov/testament/internal/session"
)

const (
	defaultWidth  = 110
	defaultHeight = 32
	askTimeout    = 2 * time.Minute
	moveTimeout   = 15 * time.Second
)

type lineKind int

const (
	lineUser lineKind = iota
	lineAssistant
	lineNotice
	lineWarning
)

type line struct {
	kind lineKind
	text string
}

// replyMsg carries the assistant turn back into the update loop
type replyMsg struct {
	resp *llm.CompleteResponse
	err  error
}

// moveMsg reports the outcome of a stage transition
type moveMsg struct {
	verb string
	err  error
}

// Chat is the bubbletea model. Sessions call the sink from whichever
// goroutine runs them, so events are buffered and drained in Update.
type Chat struct {
	sess      *session.Session
	assistant session.Replier
	events    *Notices

	input    textinput.Model
	convo    viewport.Model
	document viewport.Model

	lines    []line
	section  string // Last updated section, for the status line
	thinking bool
	quitting bool

	width  int
	height int
}

// New creates a chat over sess. Pass the Notices the session was created
// with as its sink so stage and warning notices appear in the chat.
func New(sess *session.Session, assistant session.Replier, events *Notices) *Chat {
	input := textinput.New()
	input.Placeholder = "Tell me about yourself, or type /help"
	input.Prompt = "› "
	input.CharLimit = 2000
	input.Focus()

	c := &Chat{
		sess:      sess,
		assistant: assistant,
		events:    events,
		input:     input,
		convo:     viewport.New(0, 0),
		document:  viewport.New(0, 0),
	}
	if c.events == nil {
		c.events = &Notices{}
	}
	c.resize(defaultWidth, defaultHeight)
	c.refreshConversation()
	c.refreshDocument()
	return c
}

// Init asks for the opening question
func (c *Chat) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, c.ask())
}

// Update is called when a message is received
func (c *Chat) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	defer c.drainEvents()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.resize(msg.Width, msg.Height)
		return c, nil

	case replyMsg:
		c.thinking = false
		if msg.err != nil {
			c.addLine(lineWarning, "Assistant request failed: "+msg.err.Error())
		} else {
			c.addLine(lineAssistant, msg.resp.Reply)
		}
		c.refreshDocument()
		return c, nil

	case moveMsg:
		if msg.err != nil {
			c.addLine(lineWarning, fmt.Sprintf("Cannot %s: %v", msg.verb, msg.err))
		} else {
			c.addLine(lineNotice, fmt.Sprintf("Now on the %s stage. %s", c.sess.Stage(), stageHint(c.sess.Stage())))
		}
		c.refreshDocument()
		return c, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return c.quit()
		case tea.KeyEnter:
			text := strings.TrimSpace(c.input.Value())
			c.input.Reset()
			if text == "" {
				return c, nil
			}
			if strings.HasPrefix(text, "/") {
				return c, c.command(text)
			}
			return c, c.submit(text)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			c.document, cmd = c.document.Update(msg)
			return c, cmd
		}
	}

	var cmd tea.Cmd
	before := c.input.Value()
	c.input, cmd = c.input.Update(msg)
	if c.input.Value() != before {
		c.refreshDocument()
	}
	return c, cmd
}

// View renders the two panes, the input and a status line
func (c *Chat) View() string {
	if c.quitting {
		return ""
	}

	header := headerStyle.Render("⚖ TESTAMENT · " + strings.ToUpper(c.sess.Stage().String()))

	left := paneStyle.Render(paneTitleStyle.Render("Conversation") + "\n" + c.convo.View())
	right := paneStyle.Render(paneTitleStyle.Render(c.documentTitle()) + "\n" + c.document.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, c.input.View(), footerStyle.Render(c.status()))
}

func (c *Chat) submit(text string) tea.Cmd {
	c.addLine(lineUser, text)
	res := c.sess.Submit(text)
	if res.Changed {
		c.section = res.Section
	}
	c.refreshDocument()
	return c.ask()
}

// ask requests the next assistant turn off the update loop
func (c *Chat) ask() tea.Cmd {
	c.thinking = true
	sess, assistant := c.sess, c.assistant
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()
		resp, err := sess.Ask(ctx, assistant)
		return replyMsg{resp: resp, err: err}
	}
}

func (c *Chat) move(verb string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), moveTimeout)
		defer cancel()
		return moveMsg{verb: verb, err: fn(ctx)}
	}
}

func (c *Chat) quit() (tea.Model, tea.Cmd) {
	c.quitting = true
	return c, tea.Quit
}

func (c *Chat) drainEvents() {
	ev := c.events.take()
	for _, st := range ev.complete {
		c.addLine(lineNotice, completionNotice(st))
	}
	for _, w := range ev.warnings {
		c.addLine(lineWarning, w)
	}
	if ev.section != "" {
		c.section = ev.section
	}
}

func (c *Chat) addLine(kind lineKind, text string) {
	c.lines = append(c.lines, line{kind: kind, text: text})
	c.refreshConversation()
}

func (c *Chat) resize(width, height int) {
	c.width, c.height = width, height

	paneHeight := height - 8
	if paneHeight < 5 {
		paneHeight = 5
	}
	leftWidth := width*2/5 - 4
	rightWidth := width - leftWidth - 8
	if leftWidth < 20 {
		leftWidth = 20
	}
	if rightWidth < 20 {
		rightWidth = 20
	}

	c.convo.Width, c.convo.Height = leftWidth, paneHeight
	c.document.Width, c.document.Height = rightWidth, paneHeight
	c.input.Width = width - 6
	c.refreshConversation()
	c.refreshDocument()
}

func (c *Chat) refreshConversation() {
	wrap := lipgloss.NewStyle().Width(c.convo.Width)
	var b strings.Builder
	for _, l := range c.lines {
		var text string
		switch l.kind {
		case lineUser:
			text = userStyle.Render("You: " + l.text)
		case lineAssistant:
			text = assistantStyle.Render(l.text)
		case lineNotice:
			text = noticeStyle.Render("✓ " + l.text)
		case lineWarning:
			text = warningStyle.Render("! " + l.text)
		}
		b.WriteString(wrap.Render(text))
		b.WriteString("\n\n")
	}
	c.convo.SetContent(b.String())
	c.convo.GotoBottom()
}

// refreshDocument shows the committed document, or the keystroke preview
// while a message is being typed
func (c *Chat) refreshDocument() {
	draft := strings.TrimSpace(c.input.Value())
	doc := c.sess.Document()
	if draft != "" && !strings.HasPrefix(draft, "/") {
		doc = c.sess.PreviewDraft(draft)
	}
	wrap := lipgloss.NewStyle().Width(c.document.Width)
	c.document.SetContent(wrap.Render(doc.Text()))
}

func (c *Chat) documentTitle() string {
	if draft := strings.TrimSpace(c.input.Value()); draft != "" && !strings.HasPrefix(draft, "/") {
		return "Document " + draftStyle.Render("(preview)")
	}
	return "Document"
}

func (c *Chat) status() string {
	st := c.sess.Status()
	parts := []string{fmt.Sprintf("stage %s", st.Stage)}
	if c.thinking {
		parts = append(parts, "assistant is thinking…")
	}
	if c.section != "" {
		parts = append(parts, "updated: "+c.section)
	}
	if st.Satisfied && st.Stage != model.StageReview {
		parts = append(parts, "ready: /advance")
	}
	parts = append(parts, "/help for commands")
	return strings.Join(parts, " · ")
}

func completionNotice(st model.Stage) string {
	switch st {
	case model.StageInformation:
		return "That looks like everything for the will itself. Type /advance to add your contacts."
	case model.StageContacts:
		return "Every required role has a reachable contact. Type /advance to continue."
	case model.StageDocuments:
		return "Documents are in order. Type /advance to continue."
	case model.StageVideo:
		return "Video step done. Type /advance to review your will."
	default:
		return fmt.Sprintf("The %s stage is complete.", st)
	}
}

func stageHint(st model.Stage) string {
	switch st {
	case model.StageContacts:
		return "Add people with /contact Name, Role, email or phone."
	case model.StageDocuments:
		return "Attach supporting files with /attach <path>, or /skip."
	case model.StageVideo:
		return "Record a statement and note it with /video <seconds>, or /skip."
	case model.StageReview:
		return "Review the document and save it with /export <file>."
	default:
		return ""
	}
}

// Notices is the session sink used by the chat
type Notices struct {
	mu       sync.Mutex
	complete []model.Stage
	warnings []string
	section  string
}

type bufferedEvents struct {
	complete []model.Stage
	warnings []string
	section  string
}

func (b *Notices) Preview(_ model.Document, section string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if section != "" {
		b.section = section
	}
}

func (b *Notices) StageComplete(st model.Stage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.complete = append(b.complete, st)
}

func (b *Notices) Warning(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.warnings = append(b.warnings, err.Error())
}

func (b *Notices) take() bufferedEvents {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev := bufferedEvents{complete: b.complete, warnings: b.warnings, section: b.section}
	b.complete, b.warnings, b.section = nil, nil, ""
	return ev
}
