// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "glasspane",
	Short: "Glasspane is a self-hosted access portal for internal sites",
	Long: `Glasspane is a self-hosted access portal: it authenticates users against
a company directory (with a local admin fallback), resolves their roles from
group mappings, and gates a catalog of internal sites.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
