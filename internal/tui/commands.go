package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ppiankov/testament/internal/model"
	"github.com/ppiankov/testament/internal/render"
)

const helpText = `Commands:
  /advance                          move to the next stage
  /back                             return to the previous stage
  /skip                             skip documents or video
  /contact Name, Role, email|phone  add a contact
  /contacts                         list contacts
  /attach <path>                    attach a supporting document
  /video <seconds>                  note a recorded video statement
  /template <kind>                  traditional, modern, family, business, digital
  /export <file>                    save the document (.txt, .md, .html, .docx)
  /rederive                         rebuild facts from the conversation
  /quit                             leave`

// command runs a slash command typed into the input
func (c *Chat) command(text string) tea.Cmd {
	name, arg, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "help", "?":
		c.addLine(lineNotice, helpText)
	case "advance", "next":
		return c.move("advance", c.sess.Advance)
	case "back":
		return c.move("go back", c.sess.Retreat)
	case "skip":
		if err := c.sess.Skip(); err != nil {
			c.addLine(lineWarning, err.Error())
		}
	case "contact":
		c.addContact(arg)
	case "contacts":
		c.listContacts()
	case "attach":
		c.attach(arg)
	case "video":
		c.video(arg)
	case "template":
		doc := c.sess.SetTemplate(model.TemplateKind(arg))
		c.addLine(lineNotice, "Template: "+string(doc.Template))
	case "export":
		c.export(arg)
	case "rederive":
		c.sess.Rederive()
		c.addLine(lineNotice, "Rebuilt the document from the conversation.")
	case "quit", "exit":
		_, cmd := c.quit()
		return cmd
	default:
		c.addLine(lineWarning, fmt.Sprintf("Unknown command /%s. Type /help.", name))
	}
	c.refreshDocument()
	return nil
}

// parseContact reads "Name, Role, email-or-phone"
func parseContact(arg string) (model.Contact, error) {
	parts := strings.Split(arg, ",")
	if len(parts) < 2 {
		return model.Contact{}, fmt.Errorf("usage: /contact Name, Role, email or phone")
	}
	c := model.Contact{
		Name: strings.TrimSpace(parts[0]),
		Role: model.ParseRole(parts[1]),
	}
	for _, p := range parts[2:] {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case strings.Contains(p, "@"):
			c.Email = p
		default:
			c.Phone = p
		}
	}
	return c, nil
}

func (c *Chat) addContact(arg string) {
	contact, err := parseContact(arg)
	if err != nil {
		c.addLine(lineWarning, err.Error())
		return
	}
	added, err := c.sess.AddContact(contact)
	if err != nil {
		c.addLine(lineWarning, "Contact not added: "+err.Error())
		return
	}
	c.addLine(lineNotice, fmt.Sprintf("Added %s as %s.", added.Name, added.Role))

	if problems := c.sess.Status().Problems; len(problems) > 0 && c.sess.Stage() == model.StageContacts {
		c.addLine(lineNotice, "Still needed: "+strings.Join(problems, "; "))
	}
}

func (c *Chat) listContacts() {
	contacts := c.sess.Contacts()
	if len(contacts) == 0 {
		c.addLine(lineNotice, "No contacts yet.")
		return
	}
	lines := make([]string, len(contacts))
	for i, ct := range contacts {
		reach := ct.Email
		if reach == "" {
			reach = ct.Phone
		}
		if reach == "" {
			reach = "no email or phone"
		}
		lines[i] = fmt.Sprintf("%s (%s): %s", ct.Name, ct.Role, reach)
	}
	c.addLine(lineNotice, strings.Join(lines, "\n"))
}

func (c *Chat) attach(path string) {
	if path == "" {
		c.addLine(lineWarning, "usage: /attach <path>")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		c.addLine(lineWarning, err.Error())
		return
	}
	defer f.Close()

	a, err := c.sess.Attach(filepath.Base(path), f)
	if err != nil {
		c.addLine(lineWarning, "Attachment failed: "+err.Error())
		return
	}
	c.addLine(lineNotice, fmt.Sprintf("Attached %q (%s, %d words).", a.Title, a.Kind, a.Words))
}

func (c *Chat) video(arg string) {
	seconds, err := strconv.ParseFloat(arg, 64)
	if err != nil || seconds <= 0 {
		c.addLine(lineWarning, "usage: /video <seconds>")
		return
	}
	rec := c.sess.RecordVideo(time.Duration(seconds * float64(time.Second)))
	c.addLine(lineNotice, fmt.Sprintf("Video statement noted (%s).", rec.Duration.Round(time.Second)))
}

func (c *Chat) export(path string) {
	if path == "" {
		c.addLine(lineWarning, "usage: /export <file>")
		return
	}
	format, err := render.ParseFormat(filepath.Ext(path))
	if err != nil {
		c.addLine(lineWarning, err.Error())
		return
	}

	f, err := os.Create(path)
	if err != nil {
		c.addLine(lineWarning, err.Error())
		return
	}
	if err := render.Export(f, c.sess.Document(), format); err != nil {
		f.Close()
		c.addLine(lineWarning, "Export failed: "+err.Error())
		return
	}
	if err := f.Close(); err != nil {
		c.addLine(lineWarning, "Export failed: "+err.Error())
		return
	}

	c.addLine(lineNotice, "Saved "+path)

	// Save failures reach the chat as warnings through the session sink
	ctx, cancel := context.WithTimeout(context.Background(), moveTimeout)
	defer cancel()
	_ = c.sess.Flush(ctx)
}
