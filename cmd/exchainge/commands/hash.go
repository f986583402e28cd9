package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/contenthash"
	"github.com/teranos/exchainge/display"
	"github.com/teranos/exchainge/errors"
)

var (
	hashFileKey   string
	hashDatasetID uint64
	hashFileSize  uint64
)

// HashCmd computes and checks listing content hashes
var HashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Compute and check content hashes",
	Long: `Compute and check content hashes.

Listings accept IPFS CIDs (Qm..., bafy..., bafk...) and SHA-256 digests as
64 hex characters.

Examples:
  exchainge hash file dataset.parquet
  exchainge hash derive --file-key s3/obj-17 --dataset-id 9 --file-size 52428800
  exchainge hash check <hash> dataset.parquet`,
	Annotations: skipConfig,
}

var hashFileCmd = &cobra.Command{
	Use:         "file PATH",
	Short:       "Print the CIDv1 of a file",
	Args:        cobra.ExactArgs(1),
	Annotations: skipConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", args[0])
		}
		h, err := contenthash.FromBytes(data)
		if err != nil {
			return err
		}
		return printHash(cmd, h)
	},
}

var hashDeriveCmd = &cobra.Command{
	Use:         "derive",
	Short:       "Derive the content hash of a stored file from its key, dataset and size",
	Annotations: skipConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := contenthash.Derive(hashFileKey, hashDatasetID, hashFileSize)
		if err != nil {
			return err
		}
		return printHash(cmd, h)
	},
}

var hashCheckCmd = &cobra.Command{
	Use:         "check HASH [PATH]",
	Short:       "Validate a content hash, and match it against a file when given",
	Args:        cobra.RangeArgs(1, 2),
	Annotations: skipConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		scheme, err := contenthash.Validate(args[0])
		if err != nil {
			return err
		}
		out := map[string]any{"hash": args[0], "scheme": scheme}
		if len(args) == 2 {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", args[1])
			}
			ok, err := contenthash.Matches(args[0], data)
			if err != nil {
				return err
			}
			out["matches"] = ok
		}
		return display.Render(cmd, out, func() error {
			pterm.Success.Printf("%s is a valid %s hash\n", args[0], scheme)
			if m, ok := out["matches"].(bool); ok {
				if m {
					pterm.Success.Printf("%s matches\n", args[1])
				} else {
					pterm.Warning.Printf("%s does not match\n", args[1])
				}
			}
			return nil
		})
	},
}

func printHash(cmd *cobra.Command, h string) error {
	return display.Render(cmd, map[string]string{"hash": h}, func() error {
		pterm.Println(h)
		return nil
	})
}

func init() {
	hashDeriveCmd.Flags().StringVar(&hashFileKey, "file-key", "", "Storage key of the file (required)")
	hashDeriveCmd.Flags().Uint64Var(&hashDatasetID, "dataset-id", 0, "Dataset the file belongs to")
	hashDeriveCmd.Flags().Uint64Var(&hashFileSize, "file-size", 0, "File size in bytes (required)")
	_ = hashDeriveCmd.MarkFlagRequired("file-key")
	_ = hashDeriveCmd.MarkFlagRequired("file-size")

	HashCmd.AddCommand(hashFileCmd)
	HashCmd.AddCommand(hashDeriveCmd)
	HashCmd.AddCommand(hashCheckCmd)
}
