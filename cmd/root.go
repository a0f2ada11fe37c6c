package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "live-service",
	Short: "Live translation service: session lifecycle, SSE/WebSocket broadcast",
	Long:  `HTTP + stream API for live-translation sessions. Commands: api, migrate, seed, viewer.`,
	RunE:  runAPI, // default: run API (same as "live-service api")
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(viewerCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
