package commands

import (
	"context"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/display"
	"github.com/teranos/exchainge/exchange"
	"github.com/teranos/exchainge/oracle"
	"github.com/teranos/exchainge/types"
	"github.com/teranos/exchainge/verify"
)

var (
	oracleMaxPerDay   uint16
	oracleHardwareID  string
	oracleHWType      string
	oraclePublicKey   string
	oracleCertHash    string
	oracleTrusted     string
	oracleReason      string
	oracleSignListing string
	oracleDataHash    string
	oracleTimestamp   int64
)

// OracleCmd manages the hardware oracle registry
var OracleCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Administer hardware oracles",
	Long: `Administer hardware oracles.

The registry authority allow-lists operators. An allowed operator registers
oracles; each oracle signs attestations with its own ed25519 key. The
oracle id is its hardware id.

Examples:
  exchainge oracle registry-init --as authority.key --max-per-day 144
  exchainge oracle allow --as authority.key <operator-identity>
  exchainge oracle register --as operator.key --hardware-id DRN-0042 \
      --hardware-type drone --public-key <oracle-identity> \
      --trusted '{"kind":"dji_drone","payload":{"serial":"1581F","firmware_hash":"..."}}'
  exchainge oracle sign --as oracle.key --listing <id> --data-hash <hash>
  exchainge oracle show DRN-0042`,
}

var oracleRegistryInitCmd = &cobra.Command{
	Use:   "registry-init",
	Short: "Create the oracle registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		authority, err := actor()
		if err != nil {
			return err
		}
		maxPerDay := loaded.Oracle.MaxVerificationsPerDay
		if cmd.Flags().Changed("max-per-day") {
			maxPerDay = oracleMaxPerDay
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			reg, err := x.Oracles.Init(ctx, authority, maxPerDay)
			if err != nil {
				return err
			}
			return renderRegistry(cmd, reg)
		})
	},
}

var oracleAllowCmd = &cobra.Command{
	Use:   "allow OPERATOR...",
	Short: "Add operators to the allow-list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateAllowList(cmd, args, true)
	},
}

var oracleDisallowCmd = &cobra.Command{
	Use:   "disallow OPERATOR...",
	Short: "Remove operators from the allow-list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateAllowList(cmd, args, false)
	},
}

func updateAllowList(cmd *cobra.Command, args []string, add bool) error {
	caller, err := actor()
	if err != nil {
		return err
	}
	ids := make([]types.Identity, 0, len(args))
	for _, a := range args {
		id, err := types.ParseIdentity(a)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	var u oracle.RegistryUpdate
	if add {
		u.Add = ids
	} else {
		u.Remove = ids
	}
	if cmd.Flags().Changed("max-per-day") {
		u.MaxPerDay = &oracleMaxPerDay
	}
	return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
		reg, err := x.Oracles.Update(ctx, caller, u)
		if err != nil {
			return err
		}
		return renderRegistry(cmd, reg)
	})
}

var oracleRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register an oracle under the calling operator",
	RunE: func(cmd *cobra.Command, args []string) error {
		operator, err := actor()
		if err != nil {
			return err
		}
		hwType, err := types.ParseHardwareType(oracleHWType)
		if err != nil {
			return err
		}
		pub, err := parseIdentity("public-key", oraclePublicKey)
		if err != nil {
			return err
		}
		var trusted types.TrustedHardware = types.OtherHardware{}
		if oracleTrusted != "" {
			if trusted, err = types.UnmarshalTrustedHardware([]byte(oracleTrusted)); err != nil {
				return err
			}
		}
		p := oracle.RegisterParams{
			Operator:          operator,
			HardwareID:        oracleHardwareID,
			HardwareType:      hwType,
			PublicKey:         pub,
			CertificationHash: oracleCertHash,
			Trusted:           trusted,
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			o, err := x.Oracles.Register(ctx, p)
			if err != nil {
				return err
			}
			return renderOracle(cmd, o)
		})
	},
}

var oracleDeactivateCmd = &cobra.Command{
	Use:   "deactivate ORACLE_ID",
	Short: "Deactivate an oracle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := actor()
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			o, err := x.Oracles.Deactivate(ctx, caller, args[0], oracleReason)
			if err != nil {
				return err
			}
			return renderOracle(cmd, o)
		})
	},
}

var oracleShowCmd = &cobra.Command{
	Use:   "show [ORACLE_ID]",
	Short: "Show an oracle, or the registry when no id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			if len(args) == 0 {
				reg, err := x.Oracles.GetRegistry(ctx)
				if err != nil {
					return err
				}
				return renderRegistry(cmd, reg)
			}
			o, err := x.Oracles.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return renderOracle(cmd, o)
		})
	},
}

type signedAttestation struct {
	ListingID string  `json:"listing_id"`
	DataHash  string  `json:"data_hash"`
	Timestamp int64   `json:"timestamp"`
	Location  *string `json:"location,omitempty"`
	Signer    string  `json:"signer"`
	Signature string  `json:"signature"`
}

var oracleSignCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign an attestation with the oracle key given by --as",
	Long: `Sign an attestation with the oracle key given by --as.

Runs offline. The signature covers the listing id, data hash, timestamp
and optional location; pass the printed values to "exchainge verify oracle".`,
	Annotations: skipConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := signer()
		if err != nil {
			return err
		}
		ts := time.Now().UTC().Truncate(time.Second)
		if cmd.Flags().Changed("timestamp") {
			ts = time.Unix(oracleTimestamp, 0).UTC()
		}
		location := optionalString(cmd, "location")
		sig := kp.Sign(verify.CanonicalMessage(oracleSignListing, oracleDataHash, ts, location))

		out := signedAttestation{
			ListingID: oracleSignListing,
			DataHash:  oracleDataHash,
			Timestamp: ts.Unix(),
			Location:  location,
			Signer:    kp.Identity.String(),
			Signature: base58.Encode(sig),
		}
		return display.Render(cmd, out, func() error {
			pterm.Printf("timestamp: %d\n", out.Timestamp)
			pterm.Printf("signature: %s\n", pterm.LightCyan(out.Signature))
			return nil
		})
	},
}

func renderRegistry(cmd *cobra.Command, reg types.OracleRegistry) error {
	return display.Render(cmd, reg, func() error {
		if err := display.KeyValues("Oracle registry", [][2]string{
			{"authority", reg.Authority.String()},
			{"max per day", strconv.FormatUint(uint64(reg.MaxVerificationsPerDay), 10)},
			{"oracles", strconv.FormatUint(reg.TotalOracles, 10)},
			{"updated", formatTime(&reg.UpdatedAt)},
		}); err != nil {
			return err
		}
		rows := make([][]string, 0, len(reg.AllowedOperators))
		for _, op := range reg.AllowedOperators {
			rows = append(rows, []string{op.String()})
		}
		return display.Table([]string{"ALLOWED OPERATOR"}, rows, "No operators allowed")
	})
}

func renderOracle(cmd *cobra.Command, o types.Oracle) error {
	return display.Render(cmd, o, func() error {
		status := pterm.Green("active")
		if !o.Status.Active {
			status = pterm.Red("deactivated")
		}
		vendor := types.VendorOther
		if o.Trusted != nil {
			vendor = o.Trusted.Vendor()
		}
		return display.KeyValues("Oracle", [][2]string{
			{"id", o.ID},
			{"operator", o.Operator.String()},
			{"hardware type", string(o.HardwareType)},
			{"vendor", string(vendor)},
			{"public key", o.PublicKey.String()},
			{"status", status},
			{"verifications", strconv.FormatUint(o.Quota.TotalVerifications, 10)},
			{"today", strconv.FormatUint(uint64(o.Quota.Today), 10)},
			{"registered", formatTime(&o.RegisteredAt)},
		})
	})
}

func init() {
	oracleRegistryInitCmd.Flags().Uint16Var(&oracleMaxPerDay, "max-per-day", 0, "Verifications per oracle per UTC day (default: oracle.max_verifications_per_day)")
	oracleAllowCmd.Flags().Uint16Var(&oracleMaxPerDay, "max-per-day", 0, "Also change the daily quota")
	oracleDisallowCmd.Flags().Uint16Var(&oracleMaxPerDay, "max-per-day", 0, "Also change the daily quota")

	f := oracleRegisterCmd.Flags()
	f.StringVar(&oracleHardwareID, "hardware-id", "", "Hardware id, used as the oracle id (required)")
	f.StringVar(&oracleHWType, "hardware-type", string(types.HardwareCustom), "Hardware type")
	f.StringVar(&oraclePublicKey, "public-key", "", "Identity of the oracle signing key (required)")
	f.StringVar(&oracleCertHash, "cert-hash", "", "Certification document hash")
	f.StringVar(&oracleTrusted, "trusted", "", `Vendor attestation as {"kind": ..., "payload": {...}}`)
	_ = oracleRegisterCmd.MarkFlagRequired("hardware-id")
	_ = oracleRegisterCmd.MarkFlagRequired("public-key")

	oracleDeactivateCmd.Flags().StringVar(&oracleReason, "reason", "", "Reason recorded with the deactivation")

	s := oracleSignCmd.Flags()
	s.StringVar(&oracleSignListing, "listing", "", "Listing id (required)")
	s.StringVar(&oracleDataHash, "data-hash", "", "Hash of the attested data (required)")
	s.Int64Var(&oracleTimestamp, "timestamp", 0, "Unix seconds to sign (default: now)")
	s.String("location", "", "Location string to bind into the signature")
	_ = oracleSignCmd.MarkFlagRequired("listing")
	_ = oracleSignCmd.MarkFlagRequired("data-hash")

	OracleCmd.AddCommand(oracleRegistryInitCmd)
	OracleCmd.AddCommand(oracleAllowCmd)
	OracleCmd.AddCommand(oracleDisallowCmd)
	OracleCmd.AddCommand(oracleRegisterCmd)
	OracleCmd.AddCommand(oracleDeactivateCmd)
	OracleCmd.AddCommand(oracleShowCmd)
	OracleCmd.AddCommand(oracleSignCmd)
}
