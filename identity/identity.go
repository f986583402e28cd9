// Package identity creates and loads ed25519 keypairs for ledger identities
// and produces the detached signatures hardware oracles attach to evidence.
package identity

import (
	"crypto/ed25519"
	"encoding/json"
	"os"

	"github.com/mr-tron/base58"

	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/types"
)

// Keypair holds a party's signing key and its public identity.
type Keypair struct {
	Private  ed25519.PrivateKey
	Identity types.Identity
}

// Generate creates a fresh keypair from crypto/rand.
func Generate() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate ed25519 key")
	}
	return &Keypair{Private: priv, Identity: types.IdentityFromPublicKey(pub)}, nil
}

// FromSeed derives a keypair from a 32-byte seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Newf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{Private: priv, Identity: types.IdentityFromPublicKey(priv.Public().(ed25519.PublicKey))}, nil
}

// DecodePrivateKey parses a base58-encoded 64-byte ed25519 private key.
func DecodePrivateKey(s string) (*Keypair, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, errors.Wrap(err, "private key is not base58")
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.Newf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.PrivateKey(raw)
	return &Keypair{Private: priv, Identity: types.IdentityFromPublicKey(priv.Public().(ed25519.PublicKey))}, nil
}

// EncodePrivateKey returns the base58 encoding of the private key.
func (k *Keypair) EncodePrivateKey() string {
	return base58.Encode(k.Private)
}

// Sign returns the detached ed25519 signature of msg.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Private, msg)
}

// Verify checks sig over msg against the key named by id.
func Verify(id types.Identity, msg, sig []byte) (bool, error) {
	pub, err := id.PublicKey()
	if err != nil {
		return false, err
	}
	if len(sig) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(pub, msg, sig), nil
}

type keyFile struct {
	Identity   types.Identity `json:"identity"`
	PrivateKey string         `json:"private_key"`
}

// SaveKeyFile writes the keypair as JSON readable only by the owner.
func (k *Keypair) SaveKeyFile(path string) error {
	data, err := json.MarshalIndent(keyFile{Identity: k.Identity, PrivateKey: k.EncodePrivateKey()}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode key file")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrapf(err, "failed to write key file %s", path)
	}
	return nil
}

// LoadKeyFile reads a key file written by SaveKeyFile and checks that the
// stored identity matches the private key.
func LoadKeyFile(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read key file %s", path)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, errors.Wrapf(err, "failed to decode key file %s", path)
	}
	kp, err := DecodePrivateKey(kf.PrivateKey)
	if err != nil {
		return nil, errors.Wrapf(err, "key file %s", path)
	}
	if kf.Identity != "" && kf.Identity != kp.Identity {
		return nil, errors.Newf("key file %s: identity %s does not match private key (%s)", path, kf.Identity, kp.Identity)
	}
	return kp, nil
}
