package commands

import (
	"context"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/display"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/exchange"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/listing"
	"github.com/teranos/exchainge/types"
)

var (
	listingTitle       string
	listingDescription string
	listingURI         string
	listingPrice       uint64
	listingType        string
	listingContentHash string
	listingRoyaltyBps  uint16
	listingRights      types.UsageRights
	listingReason      string
	listingProvider    string
)

// ListingCmd manages dataset listings
var ListingCmd = &cobra.Command{
	Use:   "listing",
	Short: "Create and manage dataset listings",
	Long: `Create and manage dataset listings.

A listing is created unverified. It becomes purchasable after an accepted
proof or oracle verification (see "exchainge verify").

License types: view_only, view_only_shared, shared_ownership, exclusive,
transferable_exclusive.

Examples:
  exchainge listing create --as provider.key --title "Lidar sweep" \
      --price 2500000 --type shared_ownership --content-hash <cid> --commercial-use
  exchainge listing update --as provider.key <id> --price 3000000
  exchainge listing deactivate --as provider.key <id> --reason "withdrawn"
  exchainge listing show <id>
  exchainge listing list --provider <identity>`,
}

var listingCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := actor()
		if err != nil {
			return err
		}
		lt, err := types.ParseLicenseType(listingType)
		if err != nil {
			return err
		}
		rights := listingRights
		rights.GeographicRestrictions = optionalString(cmd, "geo")

		p := listing.CreateParams{
			Provider:     provider,
			Title:        listingTitle,
			Description:  listingDescription,
			URI:          listingURI,
			Price:        listingPrice,
			LicenseType:  lt,
			ContentHash:  listingContentHash,
			UsageRights:  rights,
			RoyaltyBps:   listingRoyaltyBps,
			MaxOwners:    optionalUint32(cmd, "max-owners"),
			DurationDays: optionalUint32(cmd, "duration-days"),
			UsageLimit:   optionalUint64(cmd, "usage-limit"),
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			l, err := x.Listings.Create(ctx, p)
			if err != nil {
				return err
			}
			return renderListing(cmd, l, nil)
		})
	},
}

var listingUpdateCmd = &cobra.Command{
	Use:   "update LISTING_ID",
	Short: "Change a listing's URI, description or price",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := actor()
		if err != nil {
			return err
		}
		u := listing.UpdateParams{
			URI:         optionalString(cmd, "uri"),
			Description: optionalString(cmd, "description"),
			Price:       optionalUint64(cmd, "price"),
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			l, err := x.Listings.Update(ctx, caller, args[0], u)
			if err != nil {
				return err
			}
			return renderListing(cmd, l, nil)
		})
	},
}

var listingDeactivateCmd = &cobra.Command{
	Use:   "deactivate LISTING_ID",
	Short: "Take a listing down permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := actor()
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			l, err := x.Listings.Deactivate(ctx, caller, args[0], listingReason)
			if err != nil {
				return err
			}
			return renderListing(cmd, l, nil)
		})
	},
}

var listingShowCmd = &cobra.Command{
	Use:   "show LISTING_ID",
	Short: "Show a listing and its verification record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			var (
				l   types.Listing
				rec *types.VerificationRecord
			)
			err := x.Store.View(ctx, func(r ledger.Reader) error {
				var err error
				if l, err = r.Listing(args[0]); err != nil {
					return err
				}
				v, err := r.Verification(args[0])
				switch {
				case err == nil:
					rec = &v
				case !errors.Is(err, ledger.ErrVerificationNotFound):
					return err
				}
				return nil
			})
			if err != nil {
				return err
			}
			return renderListing(cmd, l, rec)
		})
	},
}

var listingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a provider's listings",
	RunE: func(cmd *cobra.Command, args []string) error {
		var provider types.Identity
		var err error
		if listingProvider != "" {
			provider, err = parseIdentity("provider", listingProvider)
		} else {
			provider, err = actor()
		}
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			ls, err := x.Listings.ListByProvider(ctx, provider)
			if err != nil {
				return err
			}
			return display.Render(cmd, ls, func() error {
				rows := make([][]string, 0, len(ls))
				for _, l := range ls {
					rows = append(rows, []string{
						l.ID, l.Terms.Title, l.LicenseType.String(),
						strconv.FormatUint(l.Terms.Price, 10),
						yesNo(l.Verification.Verified),
						strconv.FormatUint(l.Sales.TotalSales, 10),
						listingStatus(l),
					})
				}
				return display.Table([]string{"ID", "TITLE", "TYPE", "PRICE", "VERIFIED", "SALES", "STATUS"}, rows,
					"No listings for "+provider.Short())
			})
		})
	},
}

type listingView struct {
	types.Listing
	VerificationRecord *types.VerificationRecord `json:"verification_record,omitempty"`
}

func renderListing(cmd *cobra.Command, l types.Listing, rec *types.VerificationRecord) error {
	return display.Render(cmd, listingView{Listing: l, VerificationRecord: rec}, func() error {
		rows := [][2]string{
			{"id", l.ID},
			{"title", l.Terms.Title},
			{"provider", l.Provider.String()},
			{"type", l.LicenseType.String()},
			{"price", strconv.FormatUint(l.Terms.Price, 10)},
			{"content hash", l.ContentHash},
			{"status", listingStatus(l)},
			{"verified", yesNo(l.Verification.Verified)},
			{"sales", strconv.FormatUint(l.Sales.TotalSales, 10)},
			{"revenue", strconv.FormatUint(l.Sales.RevenueEarned, 10)},
			{"expires", formatTime(l.ExpiresAt)},
			{"usage limit", formatLimit(l.UsageLimit)},
		}
		if rec != nil {
			rows = append(rows,
				[2]string{"verification", string(rec.Method) + " by " + rec.Verifier.Short()},
				[2]string{"commitment", rec.Commitment.String()},
			)
		}
		return display.KeyValues("Listing", rows)
	})
}

func listingStatus(l types.Listing) string {
	switch {
	case l.Deactivation.Deactivated:
		return pterm.Red("deactivated")
	case l.Sales.SoldOut:
		return pterm.Yellow("sold out")
	default:
		return pterm.Green("active")
	}
}

func init() {
	f := listingCreateCmd.Flags()
	f.StringVar(&listingTitle, "title", "", "Listing title (required)")
	f.StringVar(&listingDescription, "description", "", "Listing description")
	f.StringVar(&listingURI, "uri", "", "Where licensees fetch the dataset")
	f.Uint64Var(&listingPrice, "price", 0, "Price in base units (required)")
	f.StringVar(&listingType, "type", types.ViewOnly.String(), "License type")
	f.StringVar(&listingContentHash, "content-hash", "", "IPFS CID or SHA-256 hex of the dataset (required)")
	f.Uint16Var(&listingRoyaltyBps, "royalty-bps", 0, "Resale royalty in basis points")
	f.Uint32("max-owners", 0, "Maximum number of licenses sold")
	f.Uint32("duration-days", 0, "Days until the listing and its licenses expire")
	f.Uint64("usage-limit", 0, "Accesses allowed per license")
	f.BoolVar(&listingRights.CommercialUse, "commercial-use", false, "Allow commercial use")
	f.BoolVar(&listingRights.DerivativeWorksAllowed, "derivatives", false, "Allow derivative works")
	f.BoolVar(&listingRights.RedistributionAllowed, "redistribution", false, "Allow redistribution")
	f.BoolVar(&listingRights.AttributionRequired, "attribution", false, "Require attribution")
	f.BoolVar(&listingRights.ConsentRequired, "consent-required", false, "Require provider consent for resale")
	f.BoolVar(&listingRights.AITrainingAllowed, "ai-training", false, "Allow AI training")
	f.String("geo", "", "Geographic restrictions")
	_ = listingCreateCmd.MarkFlagRequired("title")
	_ = listingCreateCmd.MarkFlagRequired("price")
	_ = listingCreateCmd.MarkFlagRequired("content-hash")

	listingUpdateCmd.Flags().String("uri", "", "New URI")
	listingUpdateCmd.Flags().String("description", "", "New description")
	listingUpdateCmd.Flags().Uint64("price", 0, "New price in base units")

	listingDeactivateCmd.Flags().StringVar(&listingReason, "reason", "", "Reason recorded with the takedown")
	listingListCmd.Flags().StringVar(&listingProvider, "provider", "", "Provider identity (default: --as)")

	ListingCmd.AddCommand(listingCreateCmd)
	ListingCmd.AddCommand(listingUpdateCmd)
	ListingCmd.AddCommand(listingDeactivateCmd)
	ListingCmd.AddCommand(listingShowCmd)
	ListingCmd.AddCommand(listingListCmd)
}
