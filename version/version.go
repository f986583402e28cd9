// Package version reports what an exchainge binary was built from and which
// ledger schema it writes.
package version

import (
	"runtime"

	"github.com/teranos/exchainge/db"
)

// Set with -ldflags "-X github.com/teranos/exchainge/version.Commit=...".
var (
	Release = "dev"
	Commit  = "unknown"
	Built   = "unknown"
)

// Build describes the running binary.
type Build struct {
	Release string `json:"release"`
	Commit  string `json:"commit"`
	Built   string `json:"built"`
	Go      string `json:"go"`
	OSArch  string `json:"os_arch"`

	// Schema is the newest embedded migration. A ledger migrated by this
	// binary has every version up to and including it.
	Schema    string `json:"schema"`
	SchemaErr string `json:"schema_error,omitempty"`
}

// Current returns the build of the running binary.
func Current() Build {
	b := Build{
		Release: Release,
		Commit:  Commit,
		Built:   Built,
		Go:      runtime.Version(),
		OSArch:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	migrations, err := db.Migrations()
	switch {
	case err != nil:
		b.SchemaErr = err.Error()
	case len(migrations) > 0:
		b.Schema = migrations[len(migrations)-1].Version
	}
	return b
}

// Line is the one-line form printed by the version command.
func (b Build) Line() string {
	commit := b.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return "exchainge " + b.Release + " (" + commit + ", schema " + b.Schema + ")"
}
