package commands

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/exchainge/config"
	"github.com/teranos/exchainge/contenthash"
	"github.com/teranos/exchainge/dataset"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/internal/testutil"
	"github.com/teranos/exchainge/license"
	"github.com/teranos/exchainge/types"
	"github.com/teranos/exchainge/verify"
)

var (
	rootOnce sync.Once
	testRoot *cobra.Command
)

// root mirrors the tree main builds. Subcommands are package singletons,
// so it is built once per test binary.
func root() *cobra.Command {
	rootOnce.Do(func() {
		testRoot = &cobra.Command{
			Use:           "exchainge",
			SilenceUsage:  true,
			SilenceErrors: true,
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return Setup(cmd)
			},
		}
		testRoot.PersistentFlags().StringVar(&ConfigPath, "config", "", "")
		testRoot.PersistentFlags().StringVar(&AsFlag, "as", "", "")
		testRoot.PersistentFlags().Bool("json", false, "")
		testRoot.AddCommand(ConfigCmd, KeygenCmd, PlatformCmd, ListingCmd, OracleCmd, VerifyCmd,
			PurchaseCmd, LicenseCmd, AccessCmd, WalletCmd, HashCmd, DatasetCmd, EventsCmd, VersionCmd)
	})
	return testRoot
}

// run executes args and returns what the command wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.Bytes()
	}()

	cmd := root()
	cmd.SetArgs(args)
	runErr := cmd.ExecuteContext(context.Background())

	os.Stdout = stdout
	require.NoError(t, w.Close())
	out := <-done
	return string(out), runErr
}

func runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := run(t, append(args, "--json")...)
	require.NoError(t, err, "exchainge %v", args)
	require.NoError(t, json.Unmarshal([]byte(out), v), "output: %s", out)
}

type keyOut struct {
	Identity string `json:"identity"`
	KeyFile  string `json:"key_file"`
}

func keygen(t *testing.T, dir, name string) keyOut {
	t.Helper()
	var k keyOut
	runJSON(t, &k, "keygen", "--out", filepath.Join(dir, name+".key"))
	require.NotEmpty(t, k.Identity)
	return k
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "ledger.db")
	cfg.Wallet.Path = filepath.Join(dir, "wallet.db")
	cfg.Log.Level = "error"
	path := filepath.Join(dir, "exchainge.toml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func TestCLIFlow(t *testing.T) {
	t.Setenv("EXCHAINGE_OUTPUT", "")
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	authority := keygen(t, dir, "authority")
	treasury := keygen(t, dir, "treasury")
	provider := keygen(t, dir, "provider")
	buyer := keygen(t, dir, "buyer")

	var p types.Platform
	runJSON(t, &p, "platform", "init", "--config", cfgPath, "--as", authority.KeyFile, "--treasury", treasury.Identity)
	assert.Equal(t, types.Identity(authority.Identity), p.Authority)
	assert.Equal(t, uint64(500), p.Settings.FeeBps)

	var l types.Listing
	runJSON(t, &l, "listing", "create", "--config", cfgPath, "--as", provider.KeyFile,
		"--title", "Lidar sweep", "--price", "100000", "--type", "shared_ownership",
		"--content-hash", testutil.ContentHash("lidar"), "--commercial-use")
	require.NotEmpty(t, l.ID)
	assert.False(t, l.Verification.Verified)

	commitment := types.Digest{1, 2, 3}
	pv := verify.PublicValues{Commitment: commitment, VerificationScore: 90, PhysicsConsistent: true, AntiSynthesisScore: 80}
	var rec types.VerificationRecord
	runJSON(t, &rec, "verify", "proof", l.ID, "--config", cfgPath, "--as", provider.KeyFile,
		"--public-values", hex.EncodeToString(pv.Encode()), "--commitment", commitment.String())
	assert.Equal(t, types.MethodProof, rec.Method)

	var bal map[string]any
	runJSON(t, &bal, "wallet", "deposit", buyer.Identity, "1000000", "--config", cfgPath)
	assert.EqualValues(t, 1000000, bal["balance"])

	var lic types.License
	runJSON(t, &lic, "purchase", l.ID, "--config", cfgPath, "--as", buyer.KeyFile)
	assert.Equal(t, uint64(100000), lic.PurchasePrice)
	assert.Equal(t, uint64(5000), lic.PlatformFee)
	assert.Equal(t, uint64(95000), lic.SellerShare)

	runJSON(t, &bal, "wallet", "balance", "--config", cfgPath, "--as", provider.Identity)
	assert.EqualValues(t, 95000, bal["balance"])

	var g struct {
		AccessCount uint64 `json:"access_count"`
	}
	runJSON(t, &g, "access", lic.ID, "--config", cfgPath, "--as", buyer.KeyFile, "--type", "api")
	assert.Equal(t, uint64(1), g.AccessCount)

	_, err := run(t, "purchase", l.ID, "--config", cfgPath, "--as", buyer.KeyFile, "--json")
	require.ErrorIs(t, err, license.ErrAlreadyLicensed)
	assert.Contains(t, FormatError(err), "already_licensed: ")

	var pending []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	runJSON(t, &pending, "events", "pending", "--config", cfgPath)
	var kinds []string
	for _, e := range pending {
		kinds = append(kinds, e.Type)
	}
	assert.Equal(t, []string{
		"platform.initialized", "listing.created", "verification.accepted", "license.purchased", "access.recorded",
	}, kinds)

	var acked map[string]int
	runJSON(t, &acked, "events", "ack", pending[0].ID, "--config", cfgPath)
	assert.Equal(t, 1, acked["acknowledged"])

	runJSON(t, &pending, "events", "pending", "--config", cfgPath, "--limit", strconv.Itoa(10))
	assert.Len(t, pending, 4)
}

func TestDatasetCommands(t *testing.T) {
	t.Setenv("EXCHAINGE_OUTPUT", "")
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	owner := keygen(t, dir, "owner")
	other := keygen(t, dir, "other")

	var reg types.DatasetRegistration
	runJSON(t, &reg, "dataset", "register", "--config", cfgPath, "--as", owner.KeyFile,
		"--dataset-id", "9", "--file-size", "52428800", "--file-key", "s3/obj-17")
	want, err := contenthash.Derive("s3/obj-17", 9, 52428800)
	require.NoError(t, err)
	assert.Equal(t, "dataset_9", reg.Key)
	assert.Equal(t, want, reg.Hash.String())

	replacement := types.Digest{0xaa}
	_, err = run(t, "dataset", "update", "dataset_9", replacement.String(), "--config", cfgPath, "--as", other.KeyFile, "--json")
	require.ErrorIs(t, err, dataset.ErrNotOwner)

	runJSON(t, &reg, "dataset", "update", "dataset_9", replacement.String(), "--config", cfgPath, "--as", owner.KeyFile)
	assert.Equal(t, replacement, reg.Hash)

	runJSON(t, &reg, "dataset", "register-hash", "survey-2026", types.Digest{0xbb}.String(), "--config", cfgPath, "--as", owner.KeyFile)
	assert.Equal(t, types.RegistrationPrecomputed, reg.Method)

	var regs []types.DatasetRegistration
	runJSON(t, &regs, "dataset", "list", "--config", cfgPath, "--as", owner.KeyFile)
	assert.Len(t, regs, 2)

	var closed map[string]any
	runJSON(t, &closed, "dataset", "close", "dataset_9", "--config", cfgPath, "--as", owner.KeyFile)
	assert.Equal(t, true, closed["closed"])

	_, err = run(t, "dataset", "show", "dataset_9", "--config", cfgPath, "--json")
	require.ErrorIs(t, err, dataset.ErrNotFound)
	assert.Contains(t, FormatError(err), "registration_not_found: ")
}

func TestOracleSignMatchesCanonicalMessage(t *testing.T) {
	dir := t.TempDir()
	k := keygen(t, dir, "oracle")

	var out signedAttestation
	runJSON(t, &out, "oracle", "sign", "--as", k.KeyFile,
		"--listing", "lst-1", "--data-hash", "abc", "--timestamp", "1772366400")
	assert.Equal(t, int64(1772366400), out.Timestamp)
	assert.Equal(t, k.Identity, out.Signer)
	assert.NotEmpty(t, out.Signature)
}

func TestActorRequired(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, err := run(t, "listing", "list", "--config", cfgPath, "--as", "")
	require.ErrorIs(t, err, ErrActorRequired)
	assert.Equal(t, errors.ErrValidation, errors.KindOf(err))
}

func TestFormatError(t *testing.T) {
	err := errors.Wrap(license.ErrSelfPurchase, "listing lst-1")
	assert.Equal(t, "self_purchase: listing lst-1: "+license.ErrSelfPurchase.Error(), FormatError(err))
	assert.Equal(t, "plain", FormatError(errors.New("plain")))
}
