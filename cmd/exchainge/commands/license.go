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

var (
	purchasePayment uint64
	licenseOwner    string
	licenseListing  string
	licenseTo       string
	licenseReason   string
	consentFor      string
	consentApprove  bool
)

// PurchaseCmd buys a license
var PurchaseCmd = &cobra.Command{
	Use:   "purchase LISTING_ID",
	Short: "Buy a license to a verified listing",
	Long: `Buy a license to a verified listing.

The payment defaults to the listing price and may be anything up to ten
times it. The platform fee is taken from the payment; the provider receives
the rest. Both legs are paid from the --as identity's wallet balance.

Examples:
  exchainge purchase <listing> --as buyer.key
  exchainge purchase <listing> --as buyer.key --payment 5000000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		buyer, err := actor()
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			payment := purchasePayment
			if !cmd.Flags().Changed("payment") {
				l, err := x.Listings.Get(ctx, args[0])
				if err != nil {
					return err
				}
				payment = l.Terms.Price
			}
			lic, err := x.Licenses.Purchase(ctx, args[0], buyer, payment)
			if err != nil {
				return err
			}
			return renderLicense(cmd, lic)
		})
	},
}

// LicenseCmd manages purchased licenses
var LicenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Inspect, transfer and revoke licenses",
	Long: `Inspect, transfer and revoke licenses.

Only shared_ownership and transferable_exclusive licenses transfer. When the
listing requires consent, the holder requests it and the provider decides
before the transfer.

Examples:
  exchainge license list --owner <identity>
  exchainge license consent-request <listing> --as holder.key
  exchainge license consent-decide <listing> --as provider.key --requester <identity> --approve
  exchainge license transfer <license> --as holder.key --to <identity>
  exchainge license revoke <license> --as provider.key --reason "chargeback"`,
}

var licenseShowCmd = &cobra.Command{
	Use:   "show LICENSE_ID",
	Short: "Show a license",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			lic, err := x.Licenses.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return renderLicense(cmd, lic)
		})
	},
}

var licenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List licenses by owner or listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			var (
				lics []types.License
				err  error
			)
			switch {
			case licenseListing != "":
				lics, err = x.Licenses.ListByListing(ctx, licenseListing)
			case licenseOwner != "":
				var owner types.Identity
				if owner, err = parseIdentity("owner", licenseOwner); err == nil {
					lics, err = x.Licenses.ListByOwner(ctx, owner)
				}
			default:
				var owner types.Identity
				if owner, err = actor(); err == nil {
					lics, err = x.Licenses.ListByOwner(ctx, owner)
				}
			}
			if err != nil {
				return err
			}
			return display.Render(cmd, lics, func() error {
				rows := make([][]string, 0, len(lics))
				for _, l := range lics {
					rows = append(rows, []string{
						l.ID, l.ListingID, l.Ownership.Owner.Short(), l.LicenseType.String(),
						strconv.FormatUint(l.Usage.AccessCount, 10), licenseStatus(l),
					})
				}
				return display.Table([]string{"ID", "LISTING", "OWNER", "TYPE", "ACCESSES", "STATUS"}, rows, "No licenses")
			})
		})
	},
}

var licenseTransferCmd = &cobra.Command{
	Use:   "transfer LICENSE_ID",
	Short: "Transfer a license to another identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := actor()
		if err != nil {
			return err
		}
		to, err := parseIdentity("to", licenseTo)
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			lic, err := x.Licenses.Transfer(ctx, args[0], caller, to)
			if err != nil {
				return err
			}
			return renderLicense(cmd, lic)
		})
	},
}

var licenseRevokeCmd = &cobra.Command{
	Use:   "revoke LICENSE_ID",
	Short: "Revoke a license (provider or platform authority)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := actor()
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			lic, err := x.Licenses.Revoke(ctx, args[0], caller, licenseReason)
			if err != nil {
				return err
			}
			return renderLicense(cmd, lic)
		})
	},
}

var consentRequestCmd = &cobra.Command{
	Use:   "consent-request LISTING_ID",
	Short: "Ask the provider to approve a resale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requester, err := actor()
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			c, err := x.Licenses.RequestConsent(ctx, args[0], requester)
			if err != nil {
				return err
			}
			return renderConsent(cmd, c)
		})
	},
}

var consentDecideCmd = &cobra.Command{
	Use:   "consent-decide LISTING_ID",
	Short: "Approve or refuse a resale consent request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := actor()
		if err != nil {
			return err
		}
		requester, err := parseIdentity("requester", consentFor)
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			c, err := x.Licenses.DecideConsent(ctx, args[0], requester, caller, consentApprove)
			if err != nil {
				return err
			}
			return renderConsent(cmd, c)
		})
	},
}

func renderLicense(cmd *cobra.Command, l types.License) error {
	return display.Render(cmd, l, func() error {
		return display.KeyValues("License", [][2]string{
			{"id", l.ID},
			{"listing", l.ListingID},
			{"owner", l.Ownership.Owner.String()},
			{"type", l.LicenseType.String()},
			{"paid", strconv.FormatUint(l.PurchasePrice, 10)},
			{"platform fee", strconv.FormatUint(l.PlatformFee, 10)},
			{"seller share", strconv.FormatUint(l.SellerShare, 10)},
			{"transfers", strconv.Itoa(int(l.Ownership.TransferCount))},
			{"accesses", strconv.FormatUint(l.Usage.AccessCount, 10)},
			{"remaining", formatLimit(l.Remaining())},
			{"expires", formatTime(l.ExpiresAt)},
			{"status", licenseStatus(l)},
		})
	})
}

func licenseStatus(l types.License) string {
	if l.Ownership.Revoked {
		return pterm.Red("revoked")
	}
	return pterm.Green("valid")
}

func renderConsent(cmd *cobra.Command, c types.ConsentRequest) error {
	return display.Render(cmd, c, func() error {
		decision := pterm.Yellow("pending")
		if c.Decision.Decided {
			decision = pterm.Red("refused")
			if c.Decision.Approved {
				decision = pterm.Green("approved")
			}
		}
		return display.KeyValues("Consent", [][2]string{
			{"listing", c.ListingID},
			{"requester", c.Requester.String()},
			{"requested", formatTime(&c.RequestedAt)},
			{"decision", decision},
		})
	})
}

func init() {
	PurchaseCmd.Flags().Uint64Var(&purchasePayment, "payment", 0, "Amount paid (default: the listing price)")

	licenseListCmd.Flags().StringVar(&licenseOwner, "owner", "", "Owner identity (default: --as)")
	licenseListCmd.Flags().StringVar(&licenseListing, "listing", "", "List every license sold on a listing")

	licenseTransferCmd.Flags().StringVar(&licenseTo, "to", "", "New owner identity (required)")
	_ = licenseTransferCmd.MarkFlagRequired("to")

	licenseRevokeCmd.Flags().StringVar(&licenseReason, "reason", "", "Reason recorded with the revocation")

	consentDecideCmd.Flags().StringVar(&consentFor, "requester", "", "Identity that requested consent (required)")
	consentDecideCmd.Flags().BoolVar(&consentApprove, "approve", false, "Approve the request; omit to refuse")
	_ = consentDecideCmd.MarkFlagRequired("requester")

	LicenseCmd.AddCommand(licenseShowCmd)
	LicenseCmd.AddCommand(licenseListCmd)
	LicenseCmd.AddCommand(licenseTransferCmd)
	LicenseCmd.AddCommand(licenseRevokeCmd)
	LicenseCmd.AddCommand(consentRequestCmd)
	LicenseCmd.AddCommand(consentDecideCmd)
}
