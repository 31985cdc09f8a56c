package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the avatar backend and its upstream providers
type Config struct {
	Listen string `toml:"listen" mapstructure:"listen"`

	HeyGenBaseURL string `toml:"heygen_base_url" mapstructure:"heygen_base_url"`
	HeyGenToken   string `toml:"heygen_token" mapstructure:"heygen_token"`

	OpenAIBaseURL string `toml:"openai_base_url" mapstructure:"openai_base_url"`
	OpenAIToken   string `toml:"openai_token" mapstructure:"openai_token"`
	Model         string `toml:"model" mapstructure:"model"`

	// Avatar session defaults
	AvatarID    string  `toml:"avatar_id" mapstructure:"avatar_id"`
	KnowledgeID string  `toml:"knowledge_id" mapstructure:"knowledge_id"`
	VoiceID     string  `toml:"voice_id" mapstructure:"voice_id"`
	VoiceRate   float64 `toml:"voice_rate" mapstructure:"voice_rate"`
	Language    string  `toml:"language" mapstructure:"language"`
	Quality     string  `toml:"quality" mapstructure:"quality"`
	Transport   string  `toml:"voice_chat_transport" mapstructure:"voice_chat_transport"` // websocket or webrtc
	STTProvider string  `toml:"stt_provider" mapstructure:"stt_provider"`
	SpeakIntro  bool    `toml:"speak_intro" mapstructure:"speak_intro"` // false = knowledge base speaks first

	PromptDirs         []string `toml:"prompt_dirs" mapstructure:"prompt_dirs"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins" mapstructure:"cors_allowed_origins"`
	UpstreamTimeoutSec int      `toml:"upstream_timeout_seconds" mapstructure:"upstream_timeout_seconds"`

	LogLevel  string `toml:"log_level" mapstructure:"log_level"`
	LogFormat string `toml:"log_format" mapstructure:"log_format"` // console or json
}

// NewDefaultConfig returns a new Config with default values
func NewDefaultConfig(promptDir string) *Config {
	return &Config{
		Listen:             ":3000",
		HeyGenBaseURL:      "https://api.heygen.com",
		HeyGenToken:        "$HEYGEN_API_KEY", // Default to env var
		OpenAIBaseURL:      "https://api.openai.com/v1",
		OpenAIToken:        "$OPENAI_API_KEY",
		Model:              "gpt-3.5-turbo",
		AvatarID:           "Graham_Chair_Sitting_public",
		KnowledgeID:        "f4ddbe7a93194620a4bcfd7ab48a7ab9",
		VoiceRate:          1.0,
		Language:           "en",
		Quality:            "high",
		Transport:          "websocket",
		STTProvider:        "deepgram",
		SpeakIntro:         true,
		PromptDirs:         []string{promptDir},
		CORSAllowedOrigins: []string{},
		UpstreamTimeoutSec: 30,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// UpstreamTimeout returns the per-request timeout used for provider calls
func (c *Config) UpstreamTimeout() time.Duration {
	if c.UpstreamTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.UpstreamTimeoutSec) * time.Second
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	// Expand $VAR references in credentials
	var err error
	if config.HeyGenToken, err = expandEnvVar(config.HeyGenToken); err != nil {
		return nil, fmt.Errorf("error expanding heygen_token: %w", err)
	}
	if config.OpenAIToken, err = expandEnvVar(config.OpenAIToken); err != nil {
		return nil, fmt.Errorf("error expanding openai_token: %w", err)
	}

	// Convert prompt directories to absolute paths
	for i, promptDir := range config.PromptDirs {
		absPath, err := ResolvePath(promptDir)
		if err != nil {
			return nil, fmt.Errorf("error resolving prompt directory path '%s': %v", promptDir, err)
		}
		config.PromptDirs[i] = absPath
	}

	return config, nil
}
