package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ppiankov/testament/internal/llm"
	"github.com/ppiankov/testament/internal/model"
	"github.com/ppiankov/testament/internal/session"
	"github.com/ppiankov/testament/internal/store"
	"github.com/ppiankov/testament/internal/tui"
)

var (
	chatTemplate string
	chatResume   string
	chatNoSave   bool
	chatLogFile  string
	chatLLM      llmFlags
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Draft a will interactively in the terminal",
	Long: `Chat opens a two-pane terminal session: the conversation on the left,
the will on the right. The document updates as you type, before you even
press enter.

Without an LLM provider the assistant asks a fixed series of questions.

Example:
  testament chat
  testament chat --template family
  testament chat --llm-provider openai --llm-model gpt-4o-mini
  testament chat --resume 7f9c2d1e-...`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatTemplate, "template", "", "will template (traditional, family, business, digital)")
	chatCmd.Flags().StringVar(&chatResume, "resume", "", "continue a saved will by id")
	chatCmd.Flags().BoolVar(&chatNoSave, "no-save", false, "keep the will in memory only")
	chatCmd.Flags().StringVar(&chatLogFile, "log-file", "", "write diagnostics to this file")
	chatLLM.register(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	chatLLM.apply(cmd, cfg)
	if chatTemplate != "" {
		cfg.Template = chatTemplate
	}

	// The terminal belongs to the chat, so logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if chatLogFile != "" {
		f, err := os.OpenFile(chatLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	log := newLogger(logOut, cfg.Output.Verbose)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var st store.Store
	if !chatNoSave {
		st, err = store.Open(ctx, cfg.Store)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() { _ = st.Close() }()
	}

	assistant, err := llm.NewAssistantFromConfig(cfg, log)
	if err != nil {
		return err
	}

	notices := &tui.Notices{}
	sess, err := openSession(ctx, cfg, st, chatResume, notices, log)
	if err != nil {
		return err
	}

	if _, err := tea.NewProgram(tui.New(sess, assistant, notices), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run chat: %w", err)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	closeErr := sess.Close(closeCtx)

	if id := sess.WillID(); id != "" {
		fmt.Fprintf(os.Stderr, "✓ Will saved as %s\n", id)
		fmt.Fprintf(os.Stderr, "  Resume with: testament chat --resume %s\n", id)
	}
	if closeErr != nil {
		return fmt.Errorf("save will: %w", closeErr)
	}
	return nil
}

// openSession starts a new will, or restores resume when it names one
func openSession(ctx context.Context, cfg *model.Config, st store.Store, resume string, sink session.Sink, log *slog.Logger) (*session.Session, error) {
	opts := session.Options{
		Template:       model.ParseTemplateKind(cfg.Template),
		Stages:         cfg.Stages,
		Saver:          cfg.Saver,
		Sink:           sink,
		Log:            log,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Store:          st,
	}

	if resume == "" {
		return session.New(opts), nil
	}
	if st == nil {
		return nil, fmt.Errorf("--resume needs a store (drop --no-save)")
	}
	w, err := st.Load(ctx, resume)
	if err != nil {
		return nil, fmt.Errorf("load will %s: %w", resume, err)
	}
	return session.Restore(w, opts), nil
}
