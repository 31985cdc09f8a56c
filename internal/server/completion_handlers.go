package server

import (
	"net/http"
	"strconv"

	"github.com/longkey1/avcoach/internal/completion"
)

type chatRequest struct {
	Message             string               `json:"message"`
	ConversationHistory []completion.Message `json:"conversationHistory"`
	CustomSystemPrompt  string               `json:"customSystemPrompt"`
	Mode                string               `json:"mode"`
}

type chatResponse struct {
	Success  bool              `json:"success"`
	Response string            `json:"response"`
	Usage    *completion.Usage `json:"usage"`
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
	SourceLanguage string `json:"sourceLanguage"`
}

type translateResponse struct {
	Success        bool              `json:"success"`
	TranslatedText string            `json:"translatedText"`
	Usage          *completion.Usage `json:"usage"`
}

type summarizeRequest struct {
	Messages  []completion.Message `json:"messages"`
	MaxLength string               `json:"maxLength"`
	Focus     string               `json:"focus"`
}

type summarizeResponse struct {
	Success bool              `json:"success"`
	Summary string            `json:"summary"`
	Usage   *completion.Usage `json:"usage"`
}

type startersRequest struct {
	Context string `json:"context"`
	Count   *int   `json:"count"`
}

type startersResponse struct {
	Success  bool     `json:"success"`
	Starters []string `json:"starters"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()

	res, err := s.completions.Chat(ctx, completion.ChatRequest{
		Message:            req.Message,
		History:            req.ConversationHistory,
		CustomSystemPrompt: req.CustomSystemPrompt,
		Mode:               req.Mode,
	})
	if err != nil {
		writeError(w, completionStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Success: true, Response: res.Content, Usage: res.Usage})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Text == "" || req.TargetLanguage == "" {
		writeError(w, http.StatusBadRequest, "Text and target language are required")
		return
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()

	res, err := s.completions.Translate(ctx, req.Text, req.TargetLanguage, req.SourceLanguage)
	if err != nil {
		writeError(w, completionStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, translateResponse{Success: true, TranslatedText: res.Content, Usage: res.Usage})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "Messages array is required and cannot be empty")
		return
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()

	res, err := s.completions.Summarize(ctx, req.Messages, req.MaxLength, req.Focus)
	if err != nil {
		writeError(w, completionStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summarizeResponse{Success: true, Summary: res.Content, Usage: res.Usage})
}

// handleStarters accepts an optional JSON body on POST and the same fields as query parameters on GET
func (s *Server) handleStarters(w http.ResponseWriter, r *http.Request) {
	var req startersRequest
	if r.Method == http.MethodPost {
		if err := decodeBody(w, r, &req, true); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		q := r.URL.Query()
		req.Context = q.Get("context")
		if n, err := strconv.Atoi(q.Get("count")); err == nil {
			req.Count = &n
		}
	}
	count := completion.DefaultStarterCount
	if req.Count != nil {
		count = *req.Count
	}

	ctx, cancel := s.upstreamContext(r)
	defer cancel()

	starters := s.completions.ConversationStarters(ctx, req.Context, count)
	writeJSON(w, http.StatusOK, startersResponse{Success: true, Starters: starters})
}
