// Command ledgerctl is the operator CLI: schema migrations, key material,
// offline signing and authority calls against a running ledger.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cliOptions are the persistent flags shared by every subcommand.
type cliOptions struct {
	configFile   string
	server       string
	authorityKey string
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate a value ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Configuration file (defaults to ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", envOr("VLG_SERVER_URL", "http://localhost:8080"), "Ledger API base URL")
	rootCmd.PersistentFlags().StringVar(&opts.authorityKey, "authority-key", os.Getenv("VLG_AUTHORITY_KEY"), "Authority key sent as X-Authority-Key")

	rootCmd.AddCommand(migrateCommands(opts))
	rootCmd.AddCommand(keygenCommand())
	rootCmd.AddCommand(hashKeyCommand())
	rootCmd.AddCommand(signCommands())
	rootCmd.AddCommand(reconcileCommand(opts))
	rootCmd.AddCommand(syncPriceCommand(opts))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
