package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/longkey1/avcoach/internal/config"
	"github.com/longkey1/avcoach/internal/heygen"
	"github.com/longkey1/avcoach/internal/i18n"
	"github.com/longkey1/avcoach/internal/logging"
	"github.com/longkey1/avcoach/internal/server"
	"github.com/longkey1/avcoach/internal/version"
	"github.com/spf13/cobra"
)

var listenAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend",
	Long: `Run the HTTP backend used by the avatar front end.

Routes:
  POST /api/get-access-token              exchange the server-held key for a session token
  POST /api/heygen-proxy                  generate a video with the server-held key
  POST /api/openai/chat                   chat completion (modes: chat, creative, professional)
  POST /api/openai/translate              translation
  POST /api/openai/summarize              conversation summary
  GET|POST /api/openai/conversation-starters
  GET  /api/i18n/{lang}                   display strings, English fallback
  GET  /api/catalog                       avatars, languages and default session config
  GET  /healthz, GET /metrics

The avatar provider key is read from heygen_token (default $HEYGEN_API_KEY).
A missing key does not prevent startup; token requests fail with 500 until it is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if listenAddr != "" {
			cfg.Listen = listenAddr
		}

		logger := newLogger(cfg)
		build := version.Get()
		logger.Info().
			Str("version", build.Version).
			Str("commit", build.CommitSHA).
			Str("built", build.BuildTime).
			Str("go", build.GoVersion).
			Msg("avcoach starting")

		completions, err := newCompletionService(cfg, logger)
		if err != nil {
			return err
		}
		catalog, err := i18n.Load()
		if err != nil {
			return err
		}

		if _, err := cfg.GetToken(config.UpstreamHeyGen); err != nil {
			logger.Warn().Err(err).Msg("access tokens will not be issued")
		}

		srv := server.New(server.Options{
			Listen:             cfg.Listen,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			UpstreamTimeout:    cfg.UpstreamTimeout(),
			DefaultSession:     sessionConfig(cfg),
		}, heygen.NewClient(cfg, newHTTPClient(cfg)), completions, catalog, logging.Component(logger, "server"))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (overrides config)")
}
