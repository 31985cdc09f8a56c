package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Upstream names accepted by GetBaseURL and GetToken
const (
	UpstreamHeyGen = "heygen"
	UpstreamOpenAI = "openai"
)

// ErrMissingCredential is wrapped by GetToken when an upstream key is not configured
var ErrMissingCredential = errors.New("credential is not configured")

// expandEnvVar expands environment variable references in the given value
// Supports both $VAR and ${VAR} syntax
// Returns the expanded value. If the environment variable is not set, returns empty string.
func expandEnvVar(value string) (string, error) {
	if !strings.HasPrefix(value, "$") {
		return value, nil
	}

	var envVarName string
	if strings.HasPrefix(value, "${") {
		if !strings.HasSuffix(value, "}") {
			return "", fmt.Errorf("unterminated variable reference: %s", value)
		}
		envVarName = value[2 : len(value)-1]
	} else {
		envVarName = strings.TrimPrefix(value, "$")
	}

	return os.Getenv(envVarName), nil
}

// GetBaseURL returns the base URL for the specified upstream
func (c *Config) GetBaseURL(upstream string) (string, error) {
	var baseURLValue string
	switch upstream {
	case UpstreamHeyGen:
		baseURLValue = c.HeyGenBaseURL
	case UpstreamOpenAI:
		baseURLValue = c.OpenAIBaseURL
	default:
		return "", fmt.Errorf("unsupported upstream: %s", upstream)
	}

	if baseURLValue == "" {
		return "", fmt.Errorf("%s base URL is not configured. Set it in config file (%s_base_url) or environment variable (AVCOACH_%s_BASE_URL)", upstream, upstream, strings.ToUpper(upstream))
	}

	return strings.TrimRight(baseURLValue, "/"), nil
}

// GetToken returns the API key for the specified upstream
// Environment variables are already expanded during LoadConfig()
func (c *Config) GetToken(upstream string) (string, error) {
	var tokenValue string
	switch upstream {
	case UpstreamHeyGen:
		tokenValue = c.HeyGenToken
	case UpstreamOpenAI:
		tokenValue = c.OpenAIToken
	default:
		return "", fmt.Errorf("unsupported upstream: %s", upstream)
	}

	if tokenValue == "" {
		return "", fmt.Errorf("%s: %w. Set it in config file (%s_token) or environment variable (AVCOACH_%s_TOKEN)", upstream, ErrMissingCredential, upstream, strings.ToUpper(upstream))
	}

	return tokenValue, nil
}

// ResolvePath converts a relative path to absolute path if needed
func ResolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}

	// Get config file directory as base directory
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("error getting current working directory: %v", err)
		}
		return filepath.Join(cwd, path), nil
	}

	configDir := filepath.Dir(configFile)
	if !filepath.IsAbs(configDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("error getting current working directory: %v", err)
		}
		configDir = filepath.Join(cwd, configDir)
	}

	return filepath.Join(configDir, path), nil
}
