// Package cmd provides the CLI commands for latch-core.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/latchagent/latch-core/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "latch-core",
	Short: "latch-core - policy enforcement core for AI coding harnesses",
	Long: `latch-core mediates every tool invocation a harness attempts against a
user-defined policy and decides allow/deny/prompt.

Quick start:
  1. Create a config file: latch.yaml
  2. Register a session:   latch-core register --session s1 --harness claude --policy policy.yaml
  3. Run:                  latch-core serve
  4. Write harness artefacts pointed at the printed port/secret:
                            latch-core register --session s1 --harness claude --policy policy.yaml --target ~/project --authz-port <port> --authz-secret <secret>

Configuration is loaded from latch.yaml in the current directory,
$HOME/.latch/, or /etc/latch/. Environment variables override config
values with the LATCH_ prefix, e.g. LATCH_LOG_LEVEL=debug.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./latch.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
