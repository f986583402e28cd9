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
	datasetID      uint64
	datasetSize    uint64
	datasetFileKey string
	datasetOwner   string
)

// DatasetCmd manages the dataset digest registry
var DatasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Register dataset digests and manage your registrations",
	Long: `Register dataset digests and manage your registrations.

register derives the digest from the stored file's key, dataset id and size
(sha256 of "key:id:size") and records it under dataset_<id>. register-hash
records a digest computed elsewhere under a key of your choosing. Only the
identity that registered a key may update or close it.

Examples:
  exchainge dataset register --as owner.key --dataset-id 9 --file-size 52428800 --file-key s3/obj-17
  exchainge dataset register-hash survey-2026 <64 hex> --as owner.key
  exchainge dataset update survey-2026 <64 hex> --as owner.key
  exchainge dataset show dataset_9
  exchainge dataset list --as owner.key
  exchainge dataset close dataset_9 --as owner.key`,
}

var datasetRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Derive and record the digest of a stored file",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := actor()
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			reg, err := x.Datasets.Register(ctx, owner, datasetID, datasetSize, datasetFileKey)
			if err != nil {
				return err
			}
			return renderRegistration(cmd, reg)
		})
	},
}

var datasetRegisterHashCmd = &cobra.Command{
	Use:   "register-hash KEY HASH",
	Short: "Record a precomputed digest under KEY",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := actor()
		if err != nil {
			return err
		}
		sum, err := types.ParseDigest(args[1])
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			reg, err := x.Datasets.RegisterHash(ctx, owner, args[0], sum)
			if err != nil {
				return err
			}
			return renderRegistration(cmd, reg)
		})
	},
}

var datasetUpdateCmd = &cobra.Command{
	Use:   "update KEY HASH",
	Short: "Replace the digest of a registration you own",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := actor()
		if err != nil {
			return err
		}
		sum, err := types.ParseDigest(args[1])
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			reg, err := x.Datasets.UpdateHash(ctx, caller, args[0], sum)
			if err != nil {
				return err
			}
			return renderRegistration(cmd, reg)
		})
	},
}

var datasetShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Show a registration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			reg, err := x.Datasets.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return renderRegistration(cmd, reg)
		})
	},
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registrations by owner (default: --as)",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			owner types.Identity
			err   error
		)
		if datasetOwner != "" {
			owner, err = parseIdentity("owner", datasetOwner)
		} else {
			owner, err = actor()
		}
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			regs, err := x.Datasets.ListByOwner(ctx, owner)
			if err != nil {
				return err
			}
			return display.Render(cmd, regs, func() error {
				rows := make([][]string, 0, len(regs))
				for _, r := range regs {
					rows = append(rows, []string{r.Key, string(r.Method), r.Hash.String(), formatTime(&r.CreatedAt)})
				}
				return display.Table([]string{"Key", "Method", "Hash", "Registered"}, rows, "No registrations")
			})
		})
	},
}

var datasetCloseCmd = &cobra.Command{
	Use:   "close KEY",
	Short: "Close a registration you own",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := actor()
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			if err := x.Datasets.Close(ctx, caller, args[0]); err != nil {
				return err
			}
			return display.Render(cmd, map[string]any{"key": args[0], "closed": true}, func() error {
				pterm.Success.Printf("Registration %s closed\n", args[0])
				return nil
			})
		})
	},
}

func renderRegistration(cmd *cobra.Command, r types.DatasetRegistration) error {
	return display.Render(cmd, r, func() error {
		rows := [][2]string{
			{"key", r.Key},
			{"owner", r.Owner.String()},
			{"hash", r.Hash.String()},
			{"method", string(r.Method)},
		}
		if r.DatasetID != nil {
			rows = append(rows,
				[2]string{"dataset id", strconv.FormatUint(*r.DatasetID, 10)},
				[2]string{"file size", strconv.FormatUint(*r.FileSize, 10)},
				[2]string{"file key", r.FileKey},
			)
		}
		rows = append(rows,
			[2]string{"registered", formatTime(&r.CreatedAt)},
			[2]string{"updated", formatTime(&r.UpdatedAt)},
		)
		return display.KeyValues("Dataset registration", rows)
	})
}

func init() {
	datasetRegisterCmd.Flags().Uint64Var(&datasetID, "dataset-id", 0, "Dataset identifier")
	datasetRegisterCmd.Flags().Uint64Var(&datasetSize, "file-size", 0, "File size in bytes (required)")
	datasetRegisterCmd.Flags().StringVar(&datasetFileKey, "file-key", "", "Storage key of the file, 1..100 characters (required)")
	_ = datasetRegisterCmd.MarkFlagRequired("file-size")
	_ = datasetRegisterCmd.MarkFlagRequired("file-key")

	datasetListCmd.Flags().StringVar(&datasetOwner, "owner", "", "Owner identity")

	DatasetCmd.AddCommand(datasetRegisterCmd)
	DatasetCmd.AddCommand(datasetRegisterHashCmd)
	DatasetCmd.AddCommand(datasetUpdateCmd)
	DatasetCmd.AddCommand(datasetShowCmd)
	DatasetCmd.AddCommand(datasetListCmd)
	DatasetCmd.AddCommand(datasetCloseCmd)
}
