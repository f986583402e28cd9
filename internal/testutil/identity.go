package testutil

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/teranos/exchainge/types"
)

// Keypair is a deterministic ed25519 test identity.
type Keypair struct {
	Identity types.Identity
	Private  ed25519.PrivateKey
}

// Sign signs msg with the keypair's private key.
func (k Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Private, msg)
}

// NewKeypair derives a keypair from name, so the same name always yields the same identity.
func NewKeypair(t *testing.T, name string) Keypair {
	t.Helper()
	seed := sha256.Sum256([]byte("exchainge-test/" + name))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return Keypair{
		Identity: types.IdentityFromPublicKey(priv.Public().(ed25519.PublicKey)),
		Private:  priv,
	}
}

// Identity returns the deterministic identity for name.
func Identity(t *testing.T, name string) types.Identity {
	t.Helper()
	return NewKeypair(t, name).Identity
}

// ContentHash is a valid 64-character hex content hash derived from name.
func ContentHash(name string) string {
	sum := sha256.Sum256([]byte(name))
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, 64)
	for _, b := range sum {
		out = append(out, hexdigits[b>>4], hexdigits[b&0x0f])
	}
	return string(out)
}

// Ptr returns a pointer to v, for optional record fields in fixtures.
func Ptr[T any](v T) *T {
	return &v
}
