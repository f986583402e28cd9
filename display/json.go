package display

import (
	"encoding/json"
	"os"
)

// MarshalJSON marshals JSON with compact formatting when EXCHAINGE_OUTPUT is
// "compact" (relays and scripts piping into jq -c), pretty formatting otherwise.
func MarshalJSON(v interface{}) ([]byte, error) {
	if os.Getenv("EXCHAINGE_OUTPUT") == "compact" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}
