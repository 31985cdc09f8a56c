/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/longkey1/avcoach/internal/completion"
	"github.com/longkey1/avcoach/internal/config"
	"github.com/spf13/cobra"
)

var (
	chatMode         string
	chatSystemPrompt string
	targetLanguage   string
	sourceLanguage   string
	summaryLength    string
	summaryFocus     string
	starterCount     int
	showUsage        bool
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message through the completion service",
	Long: `Send a message through the same completion service the server exposes at
/api/openai/chat and print the response.

If no message is provided as an argument, it reads from stdin.

Modes:
  chat          conversational coaching reply (default)
  creative      creative generation
  professional  professional generation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		message, err := readInput(args)
		if err != nil {
			return err
		}
		if message == "" {
			return fmt.Errorf("message is required")
		}

		return runCompletion(cmd.Context(), func(ctx context.Context, svc *completion.Service) (*completion.Result, error) {
			return svc.Chat(ctx, completion.ChatRequest{
				Message:            message,
				CustomSystemPrompt: chatSystemPrompt,
				Mode:               chatMode,
			})
		})
	},
}

// translateCmd represents the translate command
var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate text",
	Long: `Translate text into the target language. The source language is detected
unless --from is given. If no text is provided as an argument, it reads from stdin.

Examples:
  avcoach translate --to Dutch "How are you today?"
  echo "Guten Morgen" | avcoach translate --to English --from German`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(args)
		if err != nil {
			return err
		}
		if text == "" || targetLanguage == "" {
			return fmt.Errorf("text and target language are required")
		}

		return runCompletion(cmd.Context(), func(ctx context.Context, svc *completion.Service) (*completion.Result, error) {
			return svc.Translate(ctx, text, targetLanguage, sourceLanguage)
		})
	},
}

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a conversation",
	Long: `Summarize a conversation read from stdin as a JSON array of messages:

  [{"role":"user","content":"..."},{"role":"assistant","content":"..."}]

Lengths: brief (default), detailed
Focus: key_points, decisions, questions, general (default)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var messages []completion.Message
		if err := json.NewDecoder(os.Stdin).Decode(&messages); err != nil {
			return fmt.Errorf("reading messages: %w", err)
		}
		if len(messages) == 0 {
			return fmt.Errorf("messages array is required and cannot be empty")
		}

		return runCompletion(cmd.Context(), func(ctx context.Context, svc *completion.Service) (*completion.Result, error) {
			return svc.Summarize(ctx, messages, summaryLength, summaryFocus)
		})
	},
}

// startersCmd represents the starters command
var startersCmd = &cobra.Command{
	Use:   "starters [context]",
	Short: "Suggest conversation starters",
	Long: `Suggest conversation starters, optionally about the given context.
Prints nothing if the completion provider fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, timeout, err := loadCompletionService()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		for i, starter := range svc.ConversationStarters(ctx, strings.Join(args, " "), starterCount) {
			fmt.Printf("%d. %s\n", i+1, starter)
		}
		return nil
	},
}

func loadCompletionService() (*completion.Service, time.Duration, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, 0, fmt.Errorf("loading config: %w", err)
	}
	svc, err := newCompletionService(cfg, newLogger(cfg))
	if err != nil {
		return nil, 0, err
	}
	return svc, cfg.UpstreamTimeout(), nil
}

func runCompletion(parent context.Context, call func(context.Context, *completion.Service) (*completion.Result, error)) error {
	svc, timeout, err := loadCompletionService()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	res, err := call(ctx, svc)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	fmt.Println(res.Content)
	if showUsage && res.Usage != nil {
		fmt.Fprintf(os.Stderr, "tokens: prompt=%d completion=%d total=%d\n",
			res.Usage.PromptTokens, res.Usage.CompletionTokens, res.Usage.TotalTokens)
	}
	return nil
}

// readInput joins args, or reads stdin when there are none
func readInput(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading from stdin: %w", err)
	}
	return strings.TrimSpace(string(input)), nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(startersCmd)

	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", completion.ModeChat, "chat, creative or professional")
	chatCmd.Flags().StringVarP(&chatSystemPrompt, "system", "s", "", "custom system prompt (chat mode only)")

	translateCmd.Flags().StringVarP(&targetLanguage, "to", "t", "", "target language")
	translateCmd.Flags().StringVarP(&sourceLanguage, "from", "f", completion.DefaultSourceLang, "source language")

	summarizeCmd.Flags().StringVar(&summaryLength, "length", completion.LengthBrief, "brief or detailed")
	summarizeCmd.Flags().StringVar(&summaryFocus, "focus", completion.FocusGeneral, "key_points, decisions, questions or general")

	startersCmd.Flags().IntVarP(&starterCount, "count", "n", completion.DefaultStarterCount, "number of starters")

	for _, c := range []*cobra.Command{chatCmd, translateCmd, summarizeCmd} {
		c.Flags().BoolVar(&showUsage, "usage", false, "print token usage to stderr")
	}
}
