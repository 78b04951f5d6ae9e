// Package cmd provides the CLI commands for the 5ka Mini App.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "miniapp",
	Short: "5ka Telegram Mini App backend and bot",
	Long: `miniapp serves the 5ka Telegram Mini App and runs its chat bot.

Commands:
  serve       Start the HTTP server (Mini App page and JSON API)
  bot         Start the Telegram bot
  version     Print version information

Configuration is read from environment variables, optionally seeded from
a .env file in the current directory or the file given with --env-file.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default: ./.env when present)")
}
