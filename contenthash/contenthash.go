// Package contenthash recognises and derives the content-addressing formats
// a listing may point at: IPFS CIDs (v0 "Qm…" and base32 v1 "bafy…"/"bafk…")
// and bare SHA-256 digests as 64 hex characters.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/types"
)

// Scheme identifies the format a content hash was recognised as.
type Scheme string

const (
	SchemeCID    Scheme = "cid"
	SchemeSHA256 Scheme = "sha256"
)

const sha256HexLength = 64

// MaxFileKeyLength bounds the storage key accepted by Derive.
const MaxFileKeyLength = 100

var cidPrefixes = []string{"Qm", "bafy", "bafk"}

var (
	ErrEmpty        = errors.Reason("content_hash_empty", errors.ErrValidation, "content hash is empty")
	ErrTooLong      = errors.Reason("content_hash_too_long", errors.ErrValidation, "content hash is too long")
	ErrUnrecognized = errors.Reason("content_hash_unrecognized", errors.ErrValidation, "content hash format not recognized")
	ErrInvalidInput = errors.Reason("content_hash_input_invalid", errors.ErrValidation, "invalid content hash derivation input")
)

// Validate checks h and reports which scheme it matched.
func Validate(h string) (Scheme, error) {
	if h == "" {
		return "", errors.WithStack(ErrEmpty)
	}
	if len(h) > types.MaxContentHashLength {
		return "", errors.Wrapf(ErrTooLong, "%d characters, max %d", len(h), types.MaxContentHashLength)
	}

	if len(h) == sha256HexLength && isHex(h) {
		return SchemeSHA256, nil
	}

	for _, prefix := range cidPrefixes {
		if !strings.HasPrefix(h, prefix) {
			continue
		}
		if _, err := cid.Decode(h); err != nil {
			return "", errors.WithSecondaryError(errors.Wrapf(ErrUnrecognized, "%q has a CID prefix but does not decode", h), err)
		}
		return SchemeCID, nil
	}

	return "", errors.Wrapf(ErrUnrecognized, "%q", h)
}

// Derive computes the trustless content hash of a stored file:
// hex(sha256("<file_key>:<dataset_id>:<file_size>")).
func Derive(fileKey string, datasetID, fileSize uint64) (string, error) {
	sum, err := DeriveDigest(fileKey, datasetID, fileSize)
	if err != nil {
		return "", err
	}
	return sum.String(), nil
}

// DeriveDigest is Derive without the hex encoding.
func DeriveDigest(fileKey string, datasetID, fileSize uint64) (types.Digest, error) {
	if fileKey == "" || len(fileKey) > MaxFileKeyLength {
		return types.Digest{}, errors.Wrapf(ErrInvalidInput, "file key must be 1..%d characters", MaxFileKeyLength)
	}
	if fileSize == 0 {
		return types.Digest{}, errors.Wrap(ErrInvalidInput, "file size must be > 0")
	}
	return types.Digest(sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", fileKey, datasetID, fileSize)))), nil
}

// FromBytes returns the CIDv1 (raw codec, sha2-256) of data.
func FromBytes(data []byte) (string, error) {
	sum, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash content")
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// Matches reports whether data hashes to h under h's own scheme.
func Matches(h string, data []byte) (bool, error) {
	scheme, err := Validate(h)
	if err != nil {
		return false, err
	}

	switch scheme {
	case SchemeSHA256:
		sum := sha256.Sum256(data)
		return strings.EqualFold(hex.EncodeToString(sum[:]), h), nil
	default:
		expected, err := cid.Decode(h)
		if err != nil {
			return false, errors.Wrapf(err, "decode %q", h)
		}
		actual, err := expected.Prefix().Sum(data)
		if err != nil {
			return false, errors.Wrap(err, "failed to hash content")
		}
		return actual.Equals(expected), nil
	}
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}
