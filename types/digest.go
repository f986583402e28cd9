package types

import (
	"encoding/hex"

	"github.com/teranos/exchainge/errors"
)

// Digest is a 32-byte hash: listing commitments, evidence digests and nonces.
// It encodes as lowercase hex in JSON.
type Digest [32]byte

// IsZero reports whether every byte is zero.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest decodes a 64-character hex string.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, errors.Wrapf(err, "digest %q is not hex", s)
	}
	if len(raw) != len(d) {
		return d, errors.Newf("digest %q has %d bytes, want %d", s, len(raw), len(d))
	}
	copy(d[:], raw)
	return d, nil
}
