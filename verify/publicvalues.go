package verify

import (
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/types"
)

// PublicValuesSize is the minimum length of a proof's public values.
const PublicValuesSize = 35

// PublicValues is the fixed-layout result a proof commits to:
//
//	[0:32]  commitment
//	[32]    verification score, 0..100
//	[33]    physics consistency flag, 0 or 1
//	[34]    anti-synthesis score, 0..100
//
// Bytes after offset 35 are ignored.
type PublicValues struct {
	Commitment         types.Digest
	VerificationScore  uint8
	PhysicsConsistent  bool
	AntiSynthesisScore uint8
}

// ParsePublicValues decodes b, rejecting short input and out-of-range fields.
func ParsePublicValues(b []byte) (PublicValues, error) {
	if len(b) < PublicValuesSize {
		return PublicValues{}, errors.Wrapf(ErrPublicValuesMalformed, "%d bytes, need %d", len(b), PublicValuesSize)
	}
	var pv PublicValues
	copy(pv.Commitment[:], b[:32])
	pv.VerificationScore = b[32]
	pv.AntiSynthesisScore = b[34]

	switch b[33] {
	case 0:
	case 1:
		pv.PhysicsConsistent = true
	default:
		return PublicValues{}, errors.Wrapf(ErrPublicValuesMalformed, "physics flag %d", b[33])
	}
	if pv.VerificationScore > types.MaxScore || pv.AntiSynthesisScore > types.MaxScore {
		return PublicValues{}, errors.Wrapf(ErrPublicValuesMalformed, "scores %d/%d exceed %d",
			pv.VerificationScore, pv.AntiSynthesisScore, types.MaxScore)
	}
	return pv, nil
}

// Encode returns the 35-byte layout of pv.
func (pv PublicValues) Encode() []byte {
	b := make([]byte, PublicValuesSize)
	copy(b, pv.Commitment[:])
	b[32] = pv.VerificationScore
	if pv.PhysicsConsistent {
		b[33] = 1
	}
	b[34] = pv.AntiSynthesisScore
	return b
}
