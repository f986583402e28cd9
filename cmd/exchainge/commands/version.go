package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/display"
	"github.com/teranos/exchainge/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Show version information",
	Long:        `Display the release, commit and ledger schema version of this binary.`,
	Annotations: skipConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		b := version.Current()
		return display.Render(cmd, b, func() error {
			fmt.Println(b.Line())
			fmt.Printf("Built: %s\n", b.Built)
			fmt.Printf("Go: %s %s\n", b.Go, b.OSArch)
			return nil
		})
	},
}
