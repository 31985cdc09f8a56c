package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/longkey1/avcoach/internal/config"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter avcoach configuration",
	Long: `Write a starter configuration for the coaching server and terminal sessions.

The file goes to $HOME/.config/avcoach/config.toml unless --config is given,
next to an empty prompts/ directory. Files named after a task there
(chat.toml, translate.toml, summarize.toml, ...) override the built-in prompts.

heygen_token and openai_token are written as $HEYGEN_API_KEY and $OPENAI_API_KEY
references and expanded when the file is loaded, so no key lands on disk.
Every key can also be overridden with an AVCOACH_ environment variable,
e.g. AVCOACH_AVATAR_ID or AVCOACH_LISTEN.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile := cfgFile
		if configFile == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			configFile = filepath.Join(home, ".config", "avcoach", "config.toml")
		}

		cfg, err := writeDefaultConfig(configFile)
		if err != nil {
			return err
		}
		printInitSummary(os.Stdout, configFile, cfg)
		return nil
	},
}

// writeDefaultConfig creates path and its prompts directory. An existing file is never overwritten.
func writeDefaultConfig(path string) (*config.Config, error) {
	configDir := filepath.Dir(path)
	promptsDir := filepath.Join(configDir, "prompts")
	if err := os.MkdirAll(promptsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create prompts directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if os.IsExist(err) {
		return nil, fmt.Errorf("config file already exists at: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	cfg := config.NewDefaultConfig(promptsDir)
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return cfg, nil
}

func printInitSummary(w io.Writer, path string, cfg *config.Config) {
	fmt.Fprintf(w, "Configuration file created at: %s\n", path)
	fmt.Fprintf(w, "Prompt overrides go in: %s\n\n", cfg.PromptDirs[0])
	fmt.Fprintf(w, "Session defaults:\n")
	fmt.Fprintf(w, "  avatar:    %s\n", cfg.AvatarID)
	fmt.Fprintf(w, "  knowledge: %s\n", cfg.KnowledgeID)
	fmt.Fprintf(w, "  language:  %s\n", cfg.Language)
	fmt.Fprintf(w, "  model:     %s\n", cfg.Model)
	fmt.Fprintf(w, "  listen:    %s\n\n", cfg.Listen)
	fmt.Fprintf(w, "Export HEYGEN_API_KEY and OPENAI_API_KEY, then run 'avcoach serve' or 'avcoach session'.\n")
}

func init() {
	rootCmd.AddCommand(initCmd)
}
