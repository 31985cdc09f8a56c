// Package server exposes the credential proxy, the completion proxy and the
// catalogue endpoints over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/longkey1/avcoach/internal/avatar"
	"github.com/longkey1/avcoach/internal/completion"
	"github.com/longkey1/avcoach/internal/heygen"
	"github.com/longkey1/avcoach/internal/i18n"
)

// AvatarProvider is the API-key side of the streaming-avatar provider
type AvatarProvider interface {
	CreateToken(ctx context.Context) (string, error)
	GenerateVideo(ctx context.Context, video heygen.VideoRequest) (json.RawMessage, error)
}

// Options configures a Server
type Options struct {
	Listen             string
	CORSAllowedOrigins []string
	UpstreamTimeout    time.Duration
	DefaultSession     avatar.StartConfig
}

// Server is the HTTP surface of avcoach
type Server struct {
	opts        Options
	logger      zerolog.Logger
	mux         *http.ServeMux
	avatars     AvatarProvider
	completions *completion.Service
	catalog     *i18n.Catalog
}

// New creates a Server and registers its routes
func New(opts Options, avatars AvatarProvider, completions *completion.Service, catalog *i18n.Catalog, logger zerolog.Logger) *Server {
	if opts.UpstreamTimeout <= 0 {
		opts.UpstreamTimeout = 30 * time.Second
	}
	s := &Server{
		opts:        opts,
		logger:      logger,
		mux:         http.NewServeMux(),
		avatars:     avatars,
		completions: completions,
		catalog:     catalog,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("POST /api/get-access-token", s.handleAccessToken)
	s.mux.HandleFunc("POST /api/heygen-proxy", s.handleVideoProxy)

	s.mux.HandleFunc("POST /api/openai/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/openai/translate", s.handleTranslate)
	s.mux.HandleFunc("POST /api/openai/summarize", s.handleSummarize)
	s.mux.HandleFunc("GET /api/openai/conversation-starters", s.handleStarters)
	s.mux.HandleFunc("POST /api/openai/conversation-starters", s.handleStarters)

	s.mux.HandleFunc("GET /api/i18n/{lang}", s.handleTranslations)
	s.mux.HandleFunc("GET /api/catalog", s.handleCatalog)
}

// Handler returns the mux wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = CORS(s.opts.CORSAllowedOrigins, h)
	h = Recover(s.logger, h)
	h = AccessLog(s.logger, h)
	h = RequestID(h)
	return h
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(r *http.Request) zerolog.Logger {
	reqID, _ := RequestIDFrom(r.Context())
	return s.logger.With().Str("request_id", reqID).Logger()
}

func (s *Server) upstreamContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.UpstreamTimeout)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "ok\n")
}
