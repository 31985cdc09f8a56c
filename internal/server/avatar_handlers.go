package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/longkey1/avcoach/internal/heygen"
	"github.com/longkey1/avcoach/internal/metrics"
)

const tokenFailureBody = "Failed to retrieve access token"

// handleAccessToken exchanges the server-held API key for a session token.
// Failures are logged in full and answered with a fixed body.
func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)
	ctx, cancel := s.upstreamContext(r)
	defer cancel()

	token, err := s.avatars.CreateToken(ctx)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(heygen.ProviderName, "create_token").Inc()
		event := logger.Error().Err(err)
		var apiErr *heygen.APIError
		if errors.As(err, &apiErr) {
			event = event.Int("upstream_status", apiErr.StatusCode).Str("upstream_body", apiErr.Body)
		}
		event.Msg("error retrieving access token")
		writeText(w, http.StatusInternalServerError, tokenFailureBody)
		return
	}

	writeText(w, http.StatusOK, token)
}

type videoProxyRequest struct {
	AvatarID string          `json:"avatar_id"`
	Text     string          `json:"text"`
	Voice    json.RawMessage `json:"voice,omitempty"`
}

// handleVideoProxy forwards a video generation request with the server-held key
func (s *Server) handleVideoProxy(w http.ResponseWriter, r *http.Request) {
	var req videoProxyRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.AvatarID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "avatar_id and text are required.")
		return
	}

	video := heygen.VideoRequest{AvatarID: req.AvatarID, Text: req.Text}
	if len(req.Voice) > 0 && string(req.Voice) != "null" {
		video.Voice = req.Voice
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()

	out, err := s.avatars.GenerateVideo(ctx, video)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(heygen.ProviderName, "generate_video").Inc()
		logger := s.requestLogger(r)
		logger.Error().Err(err).Msg("error generating video")
		var apiErr *heygen.APIError
		if errors.As(err, &apiErr) {
			writeError(w, apiErr.StatusCode, apiErr.Body)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
