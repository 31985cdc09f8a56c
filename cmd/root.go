/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/longkey1/avcoach/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "avcoach",
	Short: "Backend and terminal client for an interactive coaching avatar",
	Long: `avcoach runs the backend of an interactive streaming-avatar coaching demo.
The serve command exposes the credential proxy, the completion proxy and the
translation catalogue over HTTP. The session command opens a live avatar session
from the terminal.

You can configure the tool using a TOML configuration file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/avcoach/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("AVCOACH")
	viper.AutomaticEnv()

	home, err := os.UserHomeDir()
	cobra.CheckErr(err)
	userConfigDir := filepath.Join(home, ".config", "avcoach")

	// Later directories take precedence over earlier ones
	defaultPromptDirs := []string{
		"/usr/share/avcoach/prompts",
		"/usr/local/share/avcoach/prompts",
		filepath.Join(userConfigDir, "prompts"),
	}
	defaultConfig := config.NewDefaultConfig(filepath.Join(userConfigDir, "prompts"))

	viper.SetDefault("listen", defaultConfig.Listen)
	viper.SetDefault("heygen_base_url", defaultConfig.HeyGenBaseURL)
	viper.SetDefault("heygen_token", defaultConfig.HeyGenToken)
	viper.SetDefault("openai_base_url", defaultConfig.OpenAIBaseURL)
	viper.SetDefault("openai_token", defaultConfig.OpenAIToken)
	viper.SetDefault("model", defaultConfig.Model)
	viper.SetDefault("avatar_id", defaultConfig.AvatarID)
	viper.SetDefault("knowledge_id", defaultConfig.KnowledgeID)
	viper.SetDefault("voice_id", defaultConfig.VoiceID)
	viper.SetDefault("voice_rate", defaultConfig.VoiceRate)
	viper.SetDefault("language", defaultConfig.Language)
	viper.SetDefault("quality", defaultConfig.Quality)
	viper.SetDefault("voice_chat_transport", defaultConfig.Transport)
	viper.SetDefault("stt_provider", defaultConfig.STTProvider)
	viper.SetDefault("speak_intro", defaultConfig.SpeakIntro)
	viper.SetDefault("prompt_dirs", defaultPromptDirs)
	viper.SetDefault("cors_allowed_origins", defaultConfig.CORSAllowedOrigins)
	viper.SetDefault("upstream_timeout_seconds", defaultConfig.UpstreamTimeoutSec)
	viper.SetDefault("log_level", defaultConfig.LogLevel)
	viper.SetDefault("log_format", defaultConfig.LogFormat)

	// The second name of each binding is the variable the browser demo was deployed with
	viper.BindEnv("heygen_token", "AVCOACH_HEYGEN_TOKEN", "HEYGEN_API_KEY")
	viper.BindEnv("heygen_base_url", "AVCOACH_HEYGEN_BASE_URL", "NEXT_PUBLIC_BASE_API_URL")
	viper.BindEnv("openai_token", "AVCOACH_OPENAI_TOKEN", "OPENAI_API_KEY")
	viper.BindEnv("openai_base_url", "AVCOACH_OPENAI_BASE_URL")
	viper.BindEnv("avatar_id", "AVCOACH_AVATAR_ID", "NEXT_PUBLIC_AVATAR_ID")
	viper.BindEnv("knowledge_id", "AVCOACH_KNOWLEDGE_ID", "NEXT_PUBLIC_KNOWLEDGE_ID")
	viper.BindEnv("listen", "AVCOACH_LISTEN")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	} else {
		// Load system-wide config first (lower priority)
		systemConfigPaths := []string{
			"/etc/avcoach",
			"/usr/local/etc/avcoach",
		}

		systemConfigLoaded := false
		for _, path := range systemConfigPaths {
			viper.AddConfigPath(path)
		}
		viper.SetConfigType("toml")
		viper.SetConfigName("config")

		if err := viper.ReadInConfig(); err == nil {
			systemConfigLoaded = true
			if verbose {
				fmt.Fprintln(os.Stderr, "Loaded system-wide config:", viper.ConfigFileUsed())
			}
		}

		// Load user config (higher priority) - merge with system config
		viper.AddConfigPath(userConfigDir)
		if systemConfigLoaded {
			if err := viper.MergeInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					fmt.Fprintf(os.Stderr, "Error merging user config file: %v\n", err)
				}
			} else if verbose {
				fmt.Fprintln(os.Stderr, "Merged user config:", viper.ConfigFileUsed())
			}
		} else {
			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
				}
			}
		}
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		fmt.Fprintln(os.Stderr, "Environment variables:")
		fmt.Fprintln(os.Stderr, "  AVCOACH_LISTEN:", viper.GetString("listen"))
		fmt.Fprintln(os.Stderr, "  AVCOACH_HEYGEN_BASE_URL:", viper.GetString("heygen_base_url"))
		fmt.Fprintln(os.Stderr, "  AVCOACH_OPENAI_BASE_URL:", viper.GetString("openai_base_url"))
		fmt.Fprintln(os.Stderr, "  AVCOACH_MODEL:", viper.GetString("model"))
		fmt.Fprintln(os.Stderr, "  AVCOACH_AVATAR_ID:", viper.GetString("avatar_id"))
		fmt.Fprintln(os.Stderr, "  AVCOACH_PROMPT_DIRS:", viper.GetStringSlice("prompt_dirs"))
	}
}
