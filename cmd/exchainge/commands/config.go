package commands

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/config"
	"github.com/teranos/exchainge/display"
	"github.com/teranos/exchainge/errors"
)

// ConfigCmd manages the configuration file
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage exchainge configuration",
	Long: `Manage exchainge configuration.

Configuration is read from ~/.exchainge/exchainge.toml, then ./exchainge.toml,
then the --config path, then EXCHAINGE_* environment variables
(EXCHAINGE_DATABASE_PATH overrides database.path).

Examples:
  exchainge config init                   # Write defaults to ./exchainge.toml
  exchainge config init --config ops.toml # Write defaults to ops.toml
  exchainge config show                   # Print the effective configuration`,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a default configuration file",
	Annotations: skipConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ConfigPath
		if path == "" {
			path = config.FileName
		}
		if err := config.Save(path, config.Default()); err != nil {
			return err
		}
		pterm.Success.Printf("Wrote default configuration to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return display.Render(cmd, loaded, func() error {
			data, err := toml.Marshal(loaded)
			if err != nil {
				return errors.Wrap(err, "failed to marshal config")
			}
			pterm.Println(string(data))
			return nil
		})
	},
}

func init() {
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
}
