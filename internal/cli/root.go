package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Semantic memory for conversational agents",
	Long:  "Recall stores conversation turns as scored, decaying memories and retrieves the ones that matter for the current query. Single Go binary.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(retentionCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(importCmd)
}
