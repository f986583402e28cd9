package commands

import (
	"context"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/display"
	"github.com/teranos/exchainge/exchange"
	"github.com/teranos/exchainge/platform"
	"github.com/teranos/exchainge/types"
)

var (
	platformTreasury string
	platformFeeBps   uint64
	platformPaused   bool
)

// PlatformCmd manages the platform singleton
var PlatformCmd = &cobra.Command{
	Use:   "platform",
	Short: "Initialize and administer the marketplace",
	Long: `Initialize and administer the marketplace.

The identity passed to --as on init becomes the platform authority. Only the
authority may update settings afterwards.

Examples:
  exchainge platform init --as authority.key --treasury <identity>
  exchainge platform update --as authority.key --fee-bps 250
  exchainge platform update --as authority.key --paused
  exchainge platform show`,
}

var platformInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the platform record",
	RunE: func(cmd *cobra.Command, args []string) error {
		authority, err := actor()
		if err != nil {
			return err
		}
		treasury, err := parseIdentity("treasury", platformTreasury)
		if err != nil {
			return err
		}
		fee := loaded.Platform.FeeBps
		if cmd.Flags().Changed("fee-bps") {
			fee = platformFeeBps
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			p, err := x.Platform.Initialize(ctx, authority, treasury, fee)
			if err != nil {
				return err
			}
			return renderPlatform(cmd, p)
		})
	},
}

var platformUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change treasury, fee or pause state",
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := actor()
		if err != nil {
			return err
		}
		var u platform.SettingsUpdate
		if cmd.Flags().Changed("treasury") {
			treasury, err := parseIdentity("treasury", platformTreasury)
			if err != nil {
				return err
			}
			u.Treasury = &treasury
		}
		if cmd.Flags().Changed("fee-bps") {
			u.FeeBps = &platformFeeBps
		}
		if cmd.Flags().Changed("paused") {
			u.Paused = &platformPaused
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			p, err := x.Platform.UpdateSettings(ctx, caller, u)
			if err != nil {
				return err
			}
			return renderPlatform(cmd, p)
		})
	},
}

var platformShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show platform settings and totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			p, err := x.Platform.Get(ctx)
			if err != nil {
				return err
			}
			return renderPlatform(cmd, p)
		})
	},
}

func renderPlatform(cmd *cobra.Command, p types.Platform) error {
	return display.Render(cmd, p, func() error {
		status := pterm.Green("active")
		if p.Settings.Paused {
			status = pterm.Yellow("paused")
		}
		return display.KeyValues("Platform", [][2]string{
			{"authority", p.Authority.String()},
			{"treasury", p.Settings.Treasury.String()},
			{"fee", strconv.FormatUint(p.Settings.FeeBps, 10) + " bps"},
			{"status", status},
			{"datasets", strconv.FormatUint(p.Totals.Datasets, 10)},
			{"purchases", strconv.FormatUint(p.Totals.Purchases, 10)},
			{"revenue", strconv.FormatUint(p.Totals.Revenue, 10)},
			{"initialized", formatTime(&p.InitializedAt)},
		})
	})
}

func init() {
	platformInitCmd.Flags().StringVar(&platformTreasury, "treasury", "", "Identity that receives platform fees (required)")
	platformInitCmd.Flags().Uint64Var(&platformFeeBps, "fee-bps", 0, "Platform fee in basis points (default: platform.fee_bps)")
	_ = platformInitCmd.MarkFlagRequired("treasury")

	platformUpdateCmd.Flags().StringVar(&platformTreasury, "treasury", "", "New treasury identity")
	platformUpdateCmd.Flags().Uint64Var(&platformFeeBps, "fee-bps", 0, "New fee in basis points")
	platformUpdateCmd.Flags().BoolVar(&platformPaused, "paused", false, "Pause (true) or resume (false) the marketplace")

	PlatformCmd.AddCommand(platformInitCmd)
	PlatformCmd.AddCommand(platformUpdateCmd)
	PlatformCmd.AddCommand(platformShowCmd)
}
