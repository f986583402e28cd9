package types

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"

	"github.com/teranos/exchainge/errors"
)

// ErrInvalidIdentity is returned for identities that are not base58-encoded
// 32-byte ed25519 public keys.
var ErrInvalidIdentity = errors.Reason("invalid_identity", errors.ErrValidation, "invalid identity")

// Identity names a party on the ledger: providers, buyers, authorities,
// treasuries and oracle operators. It is the base58 encoding of the party's
// ed25519 public key, so an identity is also a signature verification key.
type Identity string

// IdentityFromPublicKey encodes an ed25519 public key as an Identity.
func IdentityFromPublicKey(pub ed25519.PublicKey) Identity {
	return Identity(base58.Encode(pub))
}

// ParseIdentity validates s and returns it as an Identity.
func ParseIdentity(s string) (Identity, error) {
	id := Identity(s)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate checks that the identity decodes to an ed25519 public key.
func (id Identity) Validate() error {
	_, err := id.PublicKey()
	return err
}

// PublicKey decodes the identity into its ed25519 public key.
func (id Identity) PublicKey() (ed25519.PublicKey, error) {
	if id == "" {
		return nil, errors.Wrap(ErrInvalidIdentity, "empty identity")
	}
	raw, err := base58.Decode(string(id))
	if err != nil {
		return nil, errors.WithSecondaryError(errors.Wrapf(ErrInvalidIdentity, "%q is not base58", string(id)), err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(ErrInvalidIdentity, "%q decodes to %d bytes, want %d", string(id), len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// Short returns an abbreviated form for display.
func (id Identity) Short() string {
	if len(id) <= 12 {
		return string(id)
	}
	return string(id[:6]) + "…" + string(id[len(id)-4:])
}

func (id Identity) String() string { return string(id) }
