package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/longkey1/avcoach/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configFields = "configfile, listen, heygen_base_url, heygen_token, openai_base_url, openai_token, model, avatar_id, knowledge_id, language, promptdirs"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file and environment variables.

If a field name is specified, only that field's value is displayed.
Available fields: ` + configFields + `

Examples:
  avcoach config                  # Show all configuration
  avcoach config avatar_id        # Show only the avatar ID
  avcoach config heygen_token     # Show only the (masked) provider key`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		if len(args) > 0 {
			field := strings.ToLower(args[0])
			switch field {
			case "configfile":
				fmt.Println(viper.ConfigFileUsed())
			case "listen":
				fmt.Println(cfg.Listen)
			case "heygen_base_url", "heygenbaseurl":
				fmt.Println(cfg.HeyGenBaseURL)
			case "heygen_token", "heygentoken":
				fmt.Println(maskToken(cfg.HeyGenToken))
			case "openai_base_url", "openaibaseurl":
				fmt.Println(cfg.OpenAIBaseURL)
			case "openai_token", "openaitoken":
				fmt.Println(maskToken(cfg.OpenAIToken))
			case "model":
				fmt.Println(cfg.Model)
			case "avatar_id", "avatarid":
				fmt.Println(cfg.AvatarID)
			case "knowledge_id", "knowledgeid":
				fmt.Println(cfg.KnowledgeID)
			case "language":
				fmt.Println(cfg.Language)
			case "promptdirs":
				fmt.Println(strings.Join(cfg.PromptDirs, ","))
			default:
				fmt.Fprintf(os.Stderr, "Unknown field: %s\n", args[0])
				fmt.Fprintf(os.Stderr, "Available fields: %s\n", configFields)
				os.Exit(1)
			}
			return
		}

		fmt.Printf("ConfigFile: %s\n", viper.ConfigFileUsed())
		fmt.Printf("Listen: %s\n", cfg.Listen)
		fmt.Printf("HeyGenBaseURL: %s\n", cfg.HeyGenBaseURL)
		fmt.Printf("HeyGenToken: %s\n", maskToken(cfg.HeyGenToken))
		fmt.Printf("OpenAIBaseURL: %s\n", cfg.OpenAIBaseURL)
		fmt.Printf("OpenAIToken: %s\n", maskToken(cfg.OpenAIToken))
		fmt.Printf("Model: %s\n", cfg.Model)
		fmt.Printf("AvatarID: %s\n", cfg.AvatarID)
		fmt.Printf("KnowledgeID: %s\n", cfg.KnowledgeID)
		fmt.Printf("Voice: id=%q rate=%.2f\n", cfg.VoiceID, cfg.VoiceRate)
		fmt.Printf("Language: %s\n", cfg.Language)
		fmt.Printf("Quality: %s\n", cfg.Quality)
		fmt.Printf("VoiceChatTransport: %s\n", cfg.Transport)
		fmt.Printf("STTProvider: %s\n", cfg.STTProvider)
		fmt.Printf("SpeakIntro: %v\n", cfg.SpeakIntro)
		fmt.Printf("PromptDirectories: %s\n", strings.Join(cfg.PromptDirs, ","))
		fmt.Printf("CORSAllowedOrigins: %s\n", strings.Join(cfg.CORSAllowedOrigins, ","))
		fmt.Printf("UpstreamTimeout: %s\n", cfg.UpstreamTimeout())
		fmt.Printf("Log: level=%s format=%s\n", cfg.LogLevel, cfg.LogFormat)
	},
}

// maskToken returns a masked version of the token for security
func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
}
