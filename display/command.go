// Package display renders command results for the exchainge CLI, either as
// JSON or as pterm tables for a terminal.
package display

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/errors"
)

// ShouldOutputJSON reports whether cmd should print JSON: the local --json
// flag wins, then the root persistent --json flag, then EXCHAINGE_OUTPUT.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return envJSON()
	}

	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}

	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}

	return envJSON()
}

func envJSON() bool {
	switch os.Getenv("EXCHAINGE_OUTPUT") {
	case "json", "compact":
		return true
	}
	return false
}

// OutputJSON marshals and prints JSON using display.MarshalJSON
func OutputJSON(v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	fmt.Println(string(data))
	return nil
}

// Render prints v as JSON when the command asks for it, otherwise calls human.
func Render(cmd *cobra.Command, v interface{}, human func() error) error {
	if ShouldOutputJSON(cmd) {
		return OutputJSON(v)
	}
	return human()
}

// KeyValues prints a two-column table under a section header.
func KeyValues(title string, rows [][2]string) error {
	pterm.DefaultSection.Println(title)
	data := make(pterm.TableData, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{pterm.Gray(r[0]), r[1]})
	}
	return pterm.DefaultTable.WithData(data).Render()
}

// Table prints rows with a header line. An empty table prints a notice instead.
func Table(header []string, rows [][]string, empty string) error {
	if len(rows) == 0 {
		pterm.Info.Println(empty)
		return nil
	}
	data := append(pterm.TableData{header}, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
