package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/longkey1/avcoach/internal/version"
	"github.com/spf13/cobra"
)

var (
	versionShort bool
	versionJSON  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show avcoach build information",
	Long: `Show the avcoach release, commit, build time and Go toolchain.

--short prints "avcoach <release>" only. --json prints the same fields as a
JSON object, matching what 'avcoach serve' logs at startup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case versionJSON:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(version.Get())
		case versionShort:
			fmt.Println(version.Short())
		default:
			fmt.Println(version.Info())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVarP(&versionShort, "short", "s", false, "print \"avcoach <release>\" only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print build information as JSON")
}
