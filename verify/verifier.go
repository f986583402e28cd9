package verify

import (
	"context"

	"github.com/teranos/exchainge/identity"
	"github.com/teranos/exchainge/types"
)

// SignatureVerifier checks a detached signature by signer over msg.
// An error means the check itself could not run.
type SignatureVerifier interface {
	VerifySignature(signer types.Identity, msg, sig []byte) (bool, error)
}

// ProofVerifier runs a proof-of-computation verifier and returns the public
// values the proof attests to.
type ProofVerifier interface {
	VerifyProof(ctx context.Context, proof []byte) ([]byte, error)
}

// Ed25519Verifier verifies signatures by identities' ed25519 keys.
type Ed25519Verifier struct{}

func (Ed25519Verifier) VerifySignature(signer types.Identity, msg, sig []byte) (bool, error) {
	return identity.Verify(signer, msg, sig)
}
