package commands

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/display"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/exchange"
	"github.com/teranos/exchainge/types"
	"github.com/teranos/exchainge/verify"
)

var (
	verifyProofFile    string
	verifyPublicValues string
	verifyCommitment   string
	verifyOracleID     string
	verifyDataHash     string
	verifyTimestamp    int64
	verifySignature    string
	verifyReadings     string
)

// VerifyCmd submits verification evidence for a listing
var VerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a listing with a proof or an oracle attestation",
	Long: `Verify a listing with a proof or an oracle attestation.

A listing is verified once. Proof evidence carries the 35-byte public values
(commitment, verification score, physics flag, anti-synthesis score); both
scores must reach verification.min_score. Oracle evidence carries a signature
from a registered, active oracle made within verification.signature_max_age_seconds.

Examples:
  exchainge verify proof <listing> --as submitter.key \
      --public-values <hex> --commitment <hex> --proof-file proof.bin
  exchainge verify oracle <listing> --oracle DRN-0042 --data-hash <hash> \
      --timestamp 1772366400 --signature <base58>`,
}

var verifyProofCmd = &cobra.Command{
	Use:   "proof LISTING_ID",
	Short: "Verify with proof-of-computation output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		submitter, err := actor()
		if err != nil {
			return err
		}
		pv, err := hex.DecodeString(verifyPublicValues)
		if err != nil {
			return errors.Wrap(err, "--public-values is not hex")
		}
		commitment, err := types.ParseDigest(verifyCommitment)
		if err != nil {
			return errors.Wrap(err, "--commitment")
		}
		var proof []byte
		if verifyProofFile != "" {
			if proof, err = os.ReadFile(verifyProofFile); err != nil {
				return errors.Wrapf(err, "failed to read proof %s", verifyProofFile)
			}
		}
		ev := verify.ProofEvidence{
			Submitter:    submitter,
			Proof:        proof,
			PublicValues: pv,
			Commitment:   commitment,
		}
		return submitEvidence(cmd, args[0], ev)
	},
}

var verifyOracleCmd = &cobra.Command{
	Use:   "oracle LISTING_ID",
	Short: "Verify with a hardware oracle attestation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := base58.Decode(verifySignature)
		if err != nil {
			return errors.Wrap(err, "--signature is not base58")
		}
		var readings []types.SensorReading
		if verifyReadings != "" {
			if err := json.Unmarshal([]byte(verifyReadings), &readings); err != nil {
				return errors.Wrap(err, "--readings must be a JSON array of sensor readings")
			}
		}
		ev := verify.OracleEvidence{
			OracleID:       verifyOracleID,
			DataHash:       verifyDataHash,
			Timestamp:      time.Unix(verifyTimestamp, 0).UTC(),
			Location:       optionalString(cmd, "location"),
			SensorReadings: readings,
			Signature:      sig,
		}
		return submitEvidence(cmd, args[0], ev)
	},
}

func submitEvidence(cmd *cobra.Command, listingID string, ev verify.Evidence) error {
	return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
		rec, err := x.Verifier.Verify(ctx, listingID, ev)
		if err != nil {
			return err
		}
		return display.Render(cmd, rec, func() error {
			rows := [][2]string{
				{"record", rec.ID},
				{"listing", rec.ListingID},
				{"method", string(rec.Method)},
				{"verifier", rec.Verifier.String()},
				{"commitment", rec.Commitment.String()},
				{"verified", formatTime(&rec.VerifiedAt)},
			}
			if rec.Proof != nil {
				rows = append(rows,
					[2]string{"verification score", strconv.Itoa(int(rec.Proof.VerificationScore))},
					[2]string{"anti-synthesis score", strconv.Itoa(int(rec.Proof.AntiSynthesisScore))},
				)
			}
			if rec.Oracle != nil {
				rows = append(rows, [2]string{"oracle", rec.Oracle.OracleID})
			}
			return display.KeyValues("Verification accepted", rows)
		})
	})
}

func init() {
	p := verifyProofCmd.Flags()
	p.StringVar(&verifyPublicValues, "public-values", "", "Public values as hex (required)")
	p.StringVar(&verifyCommitment, "commitment", "", "Expected data commitment as hex (required)")
	p.StringVar(&verifyProofFile, "proof-file", "", "Raw proof bytes, checked by the configured proof verifier")
	_ = verifyProofCmd.MarkFlagRequired("public-values")
	_ = verifyProofCmd.MarkFlagRequired("commitment")

	o := verifyOracleCmd.Flags()
	o.StringVar(&verifyOracleID, "oracle", "", "Oracle id (required)")
	o.StringVar(&verifyDataHash, "data-hash", "", "Attested data hash (required)")
	o.Int64Var(&verifyTimestamp, "timestamp", 0, "Unix seconds the oracle signed (required)")
	o.StringVar(&verifySignature, "signature", "", "Base58 ed25519 signature (required)")
	o.String("location", "", "Location the oracle signed")
	o.StringVar(&verifyReadings, "readings", "", `Sensor readings as JSON, e.g. [{"sensor_type":"temp","value":21.5,"unit":"C","calibrated":true}]`)
	for _, name := range []string{"oracle", "data-hash", "timestamp", "signature"} {
		_ = verifyOracleCmd.MarkFlagRequired(name)
	}

	VerifyCmd.AddCommand(verifyProofCmd)
	VerifyCmd.AddCommand(verifyOracleCmd)
}
