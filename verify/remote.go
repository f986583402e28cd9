package verify

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/mr-tron/base58"

	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/internal/httpclient"
)

// RemoteProofVerifier runs proofs through an external prover service.
//
//	POST <url>  {"proof": "<base58>"}
//	200         {"public_values": "<hex>"}
//
// A service that rejects the proof answers with a non-2xx status.
type RemoteProofVerifier struct {
	url    string
	client *httpclient.Client
}

type proofRequest struct {
	Proof string `json:"proof"`
}

type proofResponse struct {
	PublicValues string `json:"public_values"`
}

// NewRemoteProofVerifier checks url against the client's destination policy up front.
func NewRemoteProofVerifier(url string, timeout time.Duration, opts httpclient.Options) (*RemoteProofVerifier, error) {
	c := httpclient.New(timeout, opts)
	if _, err := c.ValidateURL(url); err != nil {
		return nil, errors.Wrap(err, "proof verifier url")
	}
	return &RemoteProofVerifier{url: url, client: c}, nil
}

func (v *RemoteProofVerifier) VerifyProof(ctx context.Context, proof []byte) ([]byte, error) {
	var resp proofResponse
	if err := v.client.PostJSON(ctx, v.url, proofRequest{Proof: base58.Encode(proof)}, &resp); err != nil {
		return nil, err
	}
	out, err := hex.DecodeString(resp.PublicValues)
	if err != nil {
		return nil, errors.Wrap(err, "prover returned non-hex public values")
	}
	return out, nil
}
