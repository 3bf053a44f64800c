// Package cli wires the crawlsearchd process's cobra command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crawlsearchd",
	Short: "Bounded web crawler and full-text search daemon",
	Long: `crawlsearchd crawls a seed URL within a domain, indexes every page it
admits into a full-text search engine, and exposes Index and Search as a
small JSON-over-HTTP RPC façade.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
