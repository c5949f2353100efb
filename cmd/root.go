package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set via ldflags at build time
var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)

var rootCmd = &cobra.Command{
	Use:     "bodylog",
	Short:   "bodylog - personal body-metrics tracker",
	Long:    `A single-binary weight and body-fat tracker with Google sign-in, a REST API, and a leaderboard.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate("bodylog version {{.Version}}\n")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
