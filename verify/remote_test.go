package verify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/exchainge/internal/httpclient"
)

func TestRemoteProofVerifier(t *testing.T) {
	pv := PublicValues{Commitment: [32]byte{9}, VerificationScore: 80, PhysicsConsistent: true, AntiSynthesisScore: 75}.Encode()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req proofRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		proof, err := base58.Decode(req.Proof)
		require.NoError(t, err)
		if string(proof) != "good-proof" {
			http.Error(w, "invalid proof", http.StatusUnprocessableEntity)
			return
		}
		_ = json.NewEncoder(w).Encode(proofResponse{PublicValues: hex.EncodeToString(pv)})
	}))
	defer srv.Close()

	v, err := NewRemoteProofVerifier(srv.URL, 5*time.Second, httpclient.Options{AllowPrivate: true})
	require.NoError(t, err)

	out, err := v.VerifyProof(context.Background(), []byte("good-proof"))
	require.NoError(t, err)
	assert.Equal(t, pv, out)

	_, err = v.VerifyProof(context.Background(), []byte("forged"))
	assert.ErrorIs(t, err, httpclient.ErrBadStatus)
}

func TestRemoteProofVerifierRejectsInternalURL(t *testing.T) {
	_, err := NewRemoteProofVerifier("http://127.0.0.1:7000/verify", time.Second, httpclient.Options{})
	assert.ErrorIs(t, err, httpclient.ErrURLBlocked)
}
