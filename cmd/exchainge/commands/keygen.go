package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/display"
	"github.com/teranos/exchainge/identity"
)

var keygenOut string

// KeygenCmd creates an identity key file
var KeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an ed25519 identity key file",
	Long: `Generate an ed25519 identity key file.

The identity printed is the base58 public key other parties refer to.
Pass the key file to --as to act as that identity.

Examples:
  exchainge keygen --out provider.key
  exchainge keygen --out oracle.key --json`,
	Annotations: skipConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := identity.Generate()
		if err != nil {
			return err
		}
		if err := kp.SaveKeyFile(keygenOut); err != nil {
			return err
		}
		out := map[string]string{"identity": kp.Identity.String(), "key_file": keygenOut}
		return display.Render(cmd, out, func() error {
			pterm.Success.Printf("Wrote key file %s\n", keygenOut)
			pterm.Printf("identity: %s\n", pterm.LightCyan(kp.Identity))
			return nil
		})
	},
}

func init() {
	KeygenCmd.Flags().StringVar(&keygenOut, "out", "exchainge.key", "Path of the key file to write")
}
