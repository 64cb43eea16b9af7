package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/saturn/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "saturn",
	Short: "Mercator Saturn - multi-protocol gateway for SAP AI Core",
	Long: `Mercator Saturn exposes OpenAI, Anthropic, and Gemini compatible API
endpoints and routes requests to model deployments running on SAP AI Core.

It provides:
  - Protocol translation between the three client dialects and the
    deployed model families
  - OAuth2 token management against each provider's UAA instance
  - Automatic deployment discovery with periodic refresh
  - Model aliasing, wildcard matching, and per-family fallbacks
  - Rate-limit aware load balancing across multiple service instances`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
