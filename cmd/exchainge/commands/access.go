package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/access"
	"github.com/teranos/exchainge/display"
	"github.com/teranos/exchainge/exchange"
)

var accessType string

// AccessCmd authorizes and records one access under a license
var AccessCmd = &cobra.Command{
	Use:   "access LICENSE_ID",
	Short: "Authorize one access to a licensed dataset",
	Long: `Authorize one access to a licensed dataset.

Each granted access counts against the license's usage limit. API access
needs commercial-use rights; compute access needs AI-training rights.

Access types: download, stream, api, compute.

Examples:
  exchainge access <license> --as holder.key
  exchainge access <license> --as holder.key --type compute`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requester, err := actor()
		if err != nil {
			return err
		}
		t, err := access.ParseType(accessType)
		if err != nil {
			return err
		}
		return withExchange(cmd, func(ctx context.Context, x *exchange.Exchange) error {
			g, err := x.Access.Authorize(ctx, args[0], requester, t)
			if err != nil {
				return err
			}
			return display.Render(cmd, g, func() error {
				return display.KeyValues("Access granted", [][2]string{
					{"license", g.LicenseID},
					{"type", string(g.Type)},
					{"access count", strconv.FormatUint(g.AccessCount, 10)},
					{"remaining", formatLimit(g.Remaining)},
					{"granted", formatTime(&g.GrantedAt)},
				})
			})
		})
	},
}

func init() {
	AccessCmd.Flags().StringVar(&accessType, "type", string(access.Download), "Access type")
}
