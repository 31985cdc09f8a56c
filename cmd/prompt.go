/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/longkey1/avcoach/internal/config"
	"github.com/longkey1/avcoach/internal/prompt"
	"github.com/spf13/cobra"
)

var (
	withSource bool
	showPrompt string
)

// promptCmd represents the prompt command
var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "List the task prompt templates",
	Long: `List the prompt templates used by the completion service.

Every task has a built-in template. A file named <task>.toml in one of the
configured prompt directories replaces it; later directories take precedence.

The prompt files should be in TOML format with the following structure:
system = "System prompt with optional {{input}} placeholder"
user = "User prompt with optional {{input}} placeholder"

Use --with-source to see where each template was loaded from and --show <task>
to print one rendered with its placeholders left in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "Prompt directories: %v\n", cfg.PromptDirs)
		}

		set, err := prompt.LoadSet(cfg.PromptDirs)
		if err != nil {
			return fmt.Errorf("loading prompts: %w", err)
		}

		if showPrompt != "" {
			system, user, err := set.Render(showPrompt, nil)
			if err != nil {
				return err
			}
			fmt.Printf("# %s (from %s)\n\n[system]\n%s\n\n[user]\n%s\n", showPrompt, set.Source(showPrompt), system, user)
			return nil
		}

		fmt.Printf("Task prompt templates (%d):\n\n", len(prompt.Names()))
		for _, name := range prompt.Names() {
			if withSource {
				fmt.Printf("  %s (from %s)\n", name, set.Source(name))
			} else {
				fmt.Printf("  %s\n", name)
			}
		}

		if len(cfg.PromptDirs) > 0 {
			fmt.Printf("\nOverride a template with: %s\n", filepath.Join(cfg.PromptDirs[len(cfg.PromptDirs)-1], "<task>.toml"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().BoolVar(&withSource, "with-source", false, "Show where each template was loaded from")
	promptCmd.Flags().StringVar(&showPrompt, "show", "", "Print the named template")
}
