package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/cmd/exchainge/commands"
	"github.com/teranos/exchainge/logger"
)

var rootCmd = &cobra.Command{
	Use:   "exchainge",
	Short: "exchainge - data licensing marketplace ledger",
	Long: `exchainge - data licensing marketplace ledger.

Providers list datasets, get them verified by proof-of-computation or by a
registered hardware oracle, and sell licenses. Buyers pay through the payment
rail, hold licenses, transfer them where the license type allows and record
each access against the license terms.

Available commands:
  config   - Write and show configuration
  keygen   - Generate an identity key file
  platform - Initialize and administer the marketplace
  listing  - Create and manage dataset listings
  oracle   - Administer hardware oracles
  verify   - Verify a listing
  purchase - Buy a license
  license  - Inspect, transfer and revoke licenses
  access   - Authorize one access under a license
  wallet   - Fund identities and read balances
  hash     - Compute and check content hashes
  events   - Read and acknowledge the event outbox

Examples:
  exchainge config init                 # Write ./exchainge.toml
  exchainge keygen --out provider.key   # Create an identity
  exchainge listing list --as provider.key
  exchainge purchase <listing> --as buyer.key --json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return commands.Setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&commands.ConfigPath, "config", "", "Config file (default: ./exchainge.toml, then ~/.exchainge/exchainge.toml)")
	rootCmd.PersistentFlags().StringVar(&commands.AsFlag, "as", "", "Act as this identity: a key file from keygen, or a bare identity")
	rootCmd.PersistentFlags().Bool("json", false, "Output JSON")

	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.KeygenCmd)
	rootCmd.AddCommand(commands.PlatformCmd)
	rootCmd.AddCommand(commands.ListingCmd)
	rootCmd.AddCommand(commands.OracleCmd)
	rootCmd.AddCommand(commands.VerifyCmd)
	rootCmd.AddCommand(commands.PurchaseCmd)
	rootCmd.AddCommand(commands.LicenseCmd)
	rootCmd.AddCommand(commands.AccessCmd)
	rootCmd.AddCommand(commands.WalletCmd)
	rootCmd.AddCommand(commands.HashCmd)
	rootCmd.AddCommand(commands.DatasetCmd)
	rootCmd.AddCommand(commands.EventsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, commands.FormatError(err))
		os.Exit(1)
	}
}
