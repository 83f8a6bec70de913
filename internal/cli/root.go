// Package cli defines the tidybook command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tidybook",
	Short: "Conversational booking assistant for service businesses",
	Long: `tidybook runs an AI receptionist for multi-tenant service businesses.
It answers customer messages over a webhook, checks availability, and
books appointments against each tenant's schedule.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}
