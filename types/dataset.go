package types

import "time"

// RegistrationMethod records how a dataset digest entered the registry.
type RegistrationMethod string

const (
	// RegistrationDerived digests were computed by the registry from the
	// file's key, dataset id and size.
	RegistrationDerived RegistrationMethod = "derived"
	// RegistrationPrecomputed digests were supplied by the owner.
	RegistrationPrecomputed RegistrationMethod = "precomputed"
)

// MaxRegistrationKeyLength bounds the key of a precomputed registration.
const MaxRegistrationKeyLength = 64

// DatasetRegistration binds a key to a dataset digest for its owner. Only
// the owner may replace the digest or close the registration.
//
// DatasetID, FileSize and FileKey are set for derived registrations only.
type DatasetRegistration struct {
	Key       string             `json:"key"`
	Owner     Identity           `json:"owner"`
	Hash      Digest             `json:"hash"`
	Method    RegistrationMethod `json:"method"`
	DatasetID *uint64            `json:"dataset_id,omitempty"`
	FileSize  *uint64            `json:"file_size,omitempty"`
	FileKey   string             `json:"file_key,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
