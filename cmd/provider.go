package cmd

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/longkey1/avcoach/internal/avatar"
	"github.com/longkey1/avcoach/internal/completion"
	"github.com/longkey1/avcoach/internal/config"
	"github.com/longkey1/avcoach/internal/logging"
	"github.com/longkey1/avcoach/internal/prompt"
)

// newLogger builds the process logger from the configuration; --verbose forces debug
func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: logging.Format(cfg.LogFormat),
	})
}

// newHTTPClient returns the client used for upstream calls
func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.UpstreamTimeout()}
}

// newCompletionService wires the OpenAI completer and the prompt set into a completion.Service
func newCompletionService(cfg *config.Config, logger zerolog.Logger) (*completion.Service, error) {
	prompts, err := prompt.LoadSet(cfg.PromptDirs)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}
	completer := completion.NewOpenAI(cfg, cfg.Model, newHTTPClient(cfg))
	return completion.NewService(completer, prompts, logging.Component(logger, "completion")), nil
}

// sessionConfig is the default start configuration derived from the configuration file
func sessionConfig(cfg *config.Config) avatar.StartConfig {
	return avatar.StartConfig{
		AvatarID:    cfg.AvatarID,
		KnowledgeID: cfg.KnowledgeID,
		Voice: avatar.Voice{
			VoiceID: cfg.VoiceID,
			Rate:    cfg.VoiceRate,
		},
		Language:    cfg.Language,
		Quality:     cfg.Quality,
		Transport:   cfg.Transport,
		STTProvider: cfg.STTProvider,
	}
}
