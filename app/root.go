// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "robson-insights",
	Short: "Robson Insights is a survey service for Robson classification data",
	Long: `Robson Insights is a multi-tenant survey service for collecting and
reporting obstetric delivery records under the Robson classification,
with group based access control, invitations and quarterly reports.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
