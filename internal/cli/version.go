package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tidybook/tidybook/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tidybook %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
	},
}
