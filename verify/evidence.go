package verify

import (
	"encoding/json"
	"time"

	"github.com/teranos/exchainge/types"
)

// Evidence is what a caller submits to verify a listing: ProofEvidence or
// OracleEvidence. The set is closed.
type Evidence interface {
	Method() types.VerificationMethod
	evidence()
}

// ProofEvidence carries the output of an off-chain proof of computation.
type ProofEvidence struct {
	Submitter    types.Identity
	Proof        []byte
	PublicValues []byte
	Commitment   types.Digest
}

// OracleEvidence is a hardware oracle's signed attestation of a dataset.
// Timestamp is signed at second precision.
type OracleEvidence struct {
	OracleID       string
	DataHash       string
	Timestamp      time.Time
	Location       *string
	SensorReadings []types.SensorReading
	Signature      []byte
}

func (ProofEvidence) Method() types.VerificationMethod  { return types.MethodProof }
func (OracleEvidence) Method() types.VerificationMethod { return types.MethodOracle }

func (ProofEvidence) evidence()  {}
func (OracleEvidence) evidence() {}

// AttestationDomain separates oracle attestations from any other message an
// oracle key might sign.
const AttestationDomain = "exchainge/oracle-attestation/v1"

type canonicalAttestation struct {
	Domain    string  `json:"domain"`
	ListingID string  `json:"listing_id"`
	DataHash  string  `json:"data_hash"`
	Timestamp int64   `json:"timestamp"`
	Location  *string `json:"location"`
}

// CanonicalMessage is the exact byte string an oracle signs for an
// attestation of dataHash on listingID at ts.
func CanonicalMessage(listingID, dataHash string, ts time.Time, location *string) []byte {
	// Marshal cannot fail for strings and ints
	msg, _ := json.Marshal(canonicalAttestation{
		Domain:    AttestationDomain,
		ListingID: listingID,
		DataHash:  dataHash,
		Timestamp: ts.Unix(),
		Location:  location,
	})
	return msg
}
