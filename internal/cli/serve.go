package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bookrag/internal/adapter/embedding"
	"bookrag/internal/metrics"
	"bookrag/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the chat, search and knowledge base endpoints over HTTP.

Endpoints:
  POST /chat              answer a question
  POST /search            raw similarity search
  GET  /books             indexed books and chapters
  GET  /knowledge-status  index health
  GET  /health            liveness
  GET  /metrics           Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	model, err := newLLM(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("language model not configured, answers will use the fallback text")
		model = nil
	}

	k, err := openKnowledge(cfg, GetRootDir(), embedder.Dimension())
	if err != nil {
		return err
	}
	defer k.Close()

	m := metrics.New()
	svc := newServices(cfg, k, embedder, model, m)
	srv := server.New(addr, svc.ask, svc.search, svc.kb, cfg.Retrieve.TopK, log, m)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
