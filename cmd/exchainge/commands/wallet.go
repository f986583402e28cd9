package commands

import (
	"context"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/display"
	"github.com/teranos/exchainge/exchange"
	"github.com/teranos/exchainge/types"
)

var walletOf string

// WalletCmd manages balances on the local payment rail
var WalletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Fund identities and read balances on the local payment rail",
	Long: `Fund identities and read balances on the local payment rail.

The rail is a SQLite database (wallet.path) standing in for an external
value-transfer system. Deposits mint value and exist for local operation.

Examples:
  exchainge wallet deposit <identity> 10000000
  exchainge wallet balance --as buyer.key
  exchainge wallet balance --of <identity>`,
}

var walletDepositCmd = &cobra.Command{
	Use:   "deposit IDENTITY AMOUNT",
	Short: "Credit an identity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := types.ParseIdentity(args[0])
		if err != nil {
			return err
		}
		amt, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			if err := x.Wallet.Deposit(ctx, to, amt); err != nil {
				return err
			}
			return renderBalance(ctx, cmd, x, to)
		})
	},
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show an identity's balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			id  types.Identity
			err error
		)
		if walletOf != "" {
			id, err = parseIdentity("of", walletOf)
		} else {
			id, err = actor()
		}
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			return renderBalance(ctx, cmd, x, id)
		})
	},
}

func renderBalance(ctx context.Context, cmd *cobra.Command, x *exchange.Exchange, id types.Identity) error {
	bal, err := x.Wallet.Balance(ctx, id)
	if err != nil {
		return err
	}
	out := map[string]any{"identity": id, "balance": bal}
	return display.Render(cmd, out, func() error {
		pterm.Printf("%s  %s\n", id.Short(), pterm.LightGreen(bal))
		return nil
	})
}

func init() {
	walletBalanceCmd.Flags().StringVar(&walletOf, "of", "", "Identity to read (default: --as)")

	WalletCmd.AddCommand(walletDepositCmd)
	WalletCmd.AddCommand(walletBalanceCmd)
}
