// Package cli defines the riverbank command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "riverbank",
	Short: "Shared ledger service driven by chat commands",
	Long: `Riverbank is a shared, role-gated ledger. Chat transports relay
commands and interactive view actions to its HTTP ingress; the service owns
account balances, transaction history, roles and the audit trail.`,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config.toml")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the riverbank version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "riverbank %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
