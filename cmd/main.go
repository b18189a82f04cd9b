package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "quarterly-status",
		Short: "Activity status aggregator",
		Long: `quarterly-status polls commit feeds, RSS feeds and the GitHub events API,
merges everything into one activity history and serves a cached status view
together with the current location over HTTP.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd(), newRefreshCmd(), newLocationCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
