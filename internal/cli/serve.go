package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/testament/internal/api"
	"github.com/ppiankov/testament/internal/llm"
	"github.com/ppiankov/testament/internal/store"
)

var (
	serveAddr   string
	serveAPIKey string
	serveLLM    llmFlags
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the will drafting API over HTTP",
	Long: `Serve exposes sessions over a JSON HTTP API: create a will, post
messages, manage contacts and attachments, move between stages and export
the document.

Set an API key with --api-key or TESTAMENT_SERVER_API_KEY to require
"Authorization: Bearer <key>" on every /api route.

Example:
  testament serve
  testament serve --addr :9000 --api-key secret`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8095)")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "bearer token required on /api routes")
	serveLLM.register(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	serveLLM.apply(cmd, cfg)
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveAPIKey != "" {
		cfg.Server.APIKey = serveAPIKey
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	assistant, err := llm.NewAssistantFromConfig(cfg, log)
	if err != nil {
		return err
	}

	srv := api.NewServer(cfg, st, assistant, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("unsaved sessions at shutdown", "error", err)
		}
	}()

	log.Info("starting testament", "addr", cfg.Server.Addr, "store", cfg.Store.Driver, "assistant", assistant.Name(), "auth", cfg.Server.APIKey != "")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-done
	return nil
}
