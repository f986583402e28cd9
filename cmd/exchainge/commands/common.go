// Package commands implements the exchainge CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/exchainge/config"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/exchange"
	"github.com/teranos/exchainge/identity"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/types"
)

// Root persistent flags, bound by main.
var (
	ConfigPath string
	AsFlag     string
)

// ErrActorRequired is returned by commands that act on behalf of a party when --as is missing.
var ErrActorRequired = errors.Reason("actor_required", errors.ErrValidation, "--as is required: pass a key file or an identity")

// skipConfigAnnotation marks commands that must run before a valid config exists.
const skipConfigAnnotation = "exchainge/skip-config"

var skipConfig = map[string]string{skipConfigAnnotation: "true"}

var loaded *config.Config

// Setup loads configuration and initializes the global logger.
func Setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if cmd.Annotations[skipConfigAnnotation] == "" {
		var err error
		if cfg, err = config.Load(ConfigPath); err != nil {
			return err
		}
	}
	loaded = cfg
	if err := logger.Initialize(cfg.Log.JSON, cfg.Log.Level); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	return nil
}

// FormatError renders err as "code: message" when it carries a reason code.
func FormatError(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return fmt.Sprintf("%s: %v", code, err)
	}
	return err.Error()
}

// withExchange opens the configured exchange for the duration of fn.
func withExchange(cmd *cobra.Command, fn func(ctx context.Context, x *exchange.Exchange) error) (err error) {
	x, err := exchange.Open(loaded, exchange.WithLogger(logger.Logger))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := x.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, x)
}

// actor resolves --as, which is either a key file written by keygen or a bare identity.
func actor() (types.Identity, error) {
	if AsFlag == "" {
		return "", errors.WithStack(ErrActorRequired)
	}
	if id, err := types.ParseIdentity(AsFlag); err == nil {
		return id, nil
	}
	kp, err := identity.LoadKeyFile(AsFlag)
	if err != nil {
		return "", err
	}
	return kp.Identity, nil
}

// signer loads the key file named by --as.
func signer() (*identity.Keypair, error) {
	if AsFlag == "" {
		return nil, errors.WithStack(ErrActorRequired)
	}
	return identity.LoadKeyFile(AsFlag)
}

func parseIdentity(flag, s string) (types.Identity, error) {
	id, err := types.ParseIdentity(s)
	if err != nil {
		return "", errors.Wrapf(err, "--%s", flag)
	}
	return id, nil
}

// optionalUint64 returns nil unless the named flag was set.
func optionalUint64(cmd *cobra.Command, name string) *uint64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetUint64(name)
	return &v
}

func optionalUint32(cmd *cobra.Command, name string) *uint32 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetUint32(name)
	return &v
}

func optionalString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatLimit(v *uint64) string {
	if v == nil {
		return "unlimited"
	}
	return strconv.FormatUint(*v, 10)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
