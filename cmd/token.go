package cmd

import (
	"context"
	"fmt"

	"github.com/longkey1/avcoach/internal/avatar"
	"github.com/longkey1/avcoach/internal/config"
	"github.com/longkey1/avcoach/internal/heygen"
	"github.com/spf13/cobra"
)

var proxyURL string

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Fetch a streaming session token",
	Long: `Fetch a short-lived streaming session token and print it.

By default the token is created directly with the configured provider key.
With --proxy the token is requested from a running avcoach server instead,
the same way the browser front end does.

Examples:
  avcoach token
  avcoach token --proxy http://localhost:3000/api/get-access-token`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.UpstreamTimeout())
		defer cancel()

		token, err := newTokenSource(cfg, proxyURL).Token(ctx)
		if err != nil {
			return fmt.Errorf("fetching token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

// newTokenSource returns a proxy-backed source when proxy is set, otherwise one that uses the provider key
func newTokenSource(cfg *config.Config, proxy string) avatar.TokenSource {
	if proxy != "" {
		return &heygen.ProxyTokenSource{URL: proxy, HTTPClient: newHTTPClient(cfg)}
	}
	return avatar.TokenFunc(heygen.NewClient(cfg, newHTTPClient(cfg)).CreateToken)
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&proxyURL, "proxy", "", "credential proxy URL (default: use heygen_token directly)")
}
