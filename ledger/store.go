// Package ledger is the account store the marketplace engines run on.
//
// A Store executes each engine operation as one atomic transaction:
// Update runs fn against a Tx and commits its writes only when fn returns
// nil. Any error leaves every record exactly as it was.
//
// Writes are capability-scoped. A Tx does not expose "save listing"; it
// exposes UpdateListingTerms, UpdateListingVerification, UpdateListingSales
// and UpdateListingDeactivation, each handing its mutator a copy of the
// current record for reading and a pointer to the one sub-struct that
// capability owns. Engines depend on the narrow writer interfaces below,
// so the verification engine cannot even name a sales counter.
package ledger

import (
	"context"
	"time"

	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/types"
)

// Store is the transactional record store.
type Store interface {
	// View runs fn with read access. Reads inside one View are not
	// guaranteed to observe a single snapshot.
	View(ctx context.Context, fn func(Reader) error) error
	// Update runs fn as one serialized read-modify-write transaction.
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Reader reads ledger records. Missing records return the kind's
// not-found reason (ErrListingNotFound, ErrPlatformNotInitialized, ...).
type Reader interface {
	Platform() (types.Platform, error)
	Listing(id string) (types.Listing, error)
	ListingsByProvider(provider types.Identity) ([]types.Listing, error)
	License(id string) (types.License, error)
	LicensesByOwner(owner types.Identity) ([]types.License, error)
	LicensesByListing(listingID string) ([]types.License, error)
	Verification(listingID string) (types.VerificationRecord, error)
	OracleRegistry() (types.OracleRegistry, error)
	Oracle(id string) (types.Oracle, error)
	OraclesByOperator(operator types.Identity) ([]types.Oracle, error)
	Consent(listingID string, requester types.Identity) (types.ConsentRequest, error)
	Registration(key string) (types.DatasetRegistration, error)
	RegistrationsByOwner(owner types.Identity) ([]types.DatasetRegistration, error)
}

// PlatformWriter is held by the platform authority.
type PlatformWriter interface {
	CreatePlatform(p types.Platform) error
	UpdatePlatformSettings(at time.Time, fn func(view types.Platform, s *types.PlatformSettings) error) (types.Platform, error)
}

// TotalsWriter maintains the platform's aggregate counters.
type TotalsWriter interface {
	UpdatePlatformTotals(at time.Time, fn func(view types.Platform, t *types.PlatformTotals) error) (types.Platform, error)
}

// ProviderWriter is held by listing providers (and the authority for takedowns).
type ProviderWriter interface {
	CreateListing(l types.Listing) error
	UpdateListingTerms(id string, at time.Time, fn func(view types.Listing, t *types.Terms) error) (types.Listing, error)
	UpdateListingDeactivation(id string, at time.Time, fn func(view types.Listing, d *types.Deactivation) error) (types.Listing, error)
}

// VerificationWriter is held by the verification engine.
type VerificationWriter interface {
	UpdateListingVerification(id string, at time.Time, fn func(view types.Listing, v *types.VerificationState) error) (types.Listing, error)
	CreateVerification(rec types.VerificationRecord) error
	UpdateOracleQuota(id string, fn func(view types.Oracle, q *types.OracleQuota) error) (types.Oracle, error)
}

// SalesWriter is held by the licensing engine.
type SalesWriter interface {
	UpdateListingSales(id string, at time.Time, fn func(view types.Listing, s *types.SalesState) error) (types.Listing, error)
	CreateLicense(l types.License) error
}

// OwnershipWriter is held by the license transfer and revocation paths.
type OwnershipWriter interface {
	UpdateLicenseOwnership(id string, fn func(view types.License, o *types.Ownership) error) (types.License, error)
}

// UsageWriter is held by access control.
type UsageWriter interface {
	UpdateLicenseUsage(id string, fn func(view types.License, u *types.Usage) error) (types.License, error)
}

// OracleWriter is held by the oracle registry.
type OracleWriter interface {
	CreateOracleRegistry(r types.OracleRegistry) error
	UpdateOracleRegistry(at time.Time, fn func(r *types.OracleRegistry) error) (types.OracleRegistry, error)
	CreateOracle(o types.Oracle) error
	UpdateOracleStatus(id string, fn func(view types.Oracle, s *types.OracleStatus) error) (types.Oracle, error)
}

// ConsentWriter is held by the resale consent flow.
type ConsentWriter interface {
	CreateConsent(c types.ConsentRequest) error
	UpdateConsentDecision(listingID string, requester types.Identity, fn func(view types.ConsentRequest, d *types.ConsentDecision) error) (types.ConsentRequest, error)
	CloseConsent(listingID string, requester types.Identity) error
}

// RegistrationWriter is held by the dataset registry.
type RegistrationWriter interface {
	CreateRegistration(r types.DatasetRegistration) error
	UpdateRegistrationHash(key string, at time.Time, fn func(view types.DatasetRegistration, h *types.Digest) error) (types.DatasetRegistration, error)
	RemoveRegistration(key string) error
}

// Tx is the full read-write surface inside Update.
type Tx interface {
	Reader
	PlatformWriter
	TotalsWriter
	ProviderWriter
	VerificationWriter
	SalesWriter
	OwnershipWriter
	UsageWriter
	OracleWriter
	ConsentWriter
	RegistrationWriter
}

// Kind names a record type; it is the first half of every record's key.
type Kind string

const (
	KindPlatform       Kind = "platform"
	KindListing        Kind = "listing"
	KindLicense        Kind = "license"
	KindVerification   Kind = "verification"
	KindOracleRegistry Kind = "oracle_registry"
	KindOracle         Kind = "oracle"
	KindConsent        Kind = "consent"
	KindRegistration   Kind = "registration"
)

const singletonHandle = "singleton"

var (
	ErrPlatformNotInitialized = errors.Reason("platform_not_initialized", errors.ErrNotFound, "platform is not initialized")
	ErrPlatformExists         = errors.Reason("platform_already_initialized", errors.ErrConflict, "platform is already initialized")

	ErrListingNotFound = errors.Reason("listing_not_found", errors.ErrNotFound, "listing not found")
	ErrListingExists   = errors.Reason("listing_exists", errors.ErrConflict, "listing already exists")

	ErrLicenseNotFound = errors.Reason("license_not_found", errors.ErrNotFound, "license not found")
	ErrLicenseExists   = errors.Reason("license_exists", errors.ErrConflict, "license already exists")

	ErrVerificationNotFound = errors.Reason("verification_not_found", errors.ErrNotFound, "verification record not found")
	ErrVerificationExists   = errors.Reason("verification_exists", errors.ErrConflict, "listing already has a verification record")

	ErrOracleRegistryNotInitialized = errors.Reason("oracle_registry_not_initialized", errors.ErrNotFound, "oracle registry is not initialized")
	ErrOracleRegistryExists         = errors.Reason("oracle_registry_already_initialized", errors.ErrConflict, "oracle registry is already initialized")

	ErrOracleNotFound = errors.Reason("oracle_not_found", errors.ErrNotFound, "oracle not found")
	ErrOracleExists   = errors.Reason("oracle_exists", errors.ErrConflict, "oracle already exists")

	ErrConsentNotFound = errors.Reason("consent_not_found", errors.ErrNotFound, "consent request not found")
	ErrConsentExists   = errors.Reason("consent_exists", errors.ErrConflict, "consent request already exists")

	ErrRegistrationNotFound = errors.Reason("registration_not_found", errors.ErrNotFound, "dataset registration not found")
	ErrRegistrationExists   = errors.Reason("registration_exists", errors.ErrConflict, "a dataset registration already exists for this key")

	// ErrStoreClosed is returned by every call after Close.
	ErrStoreClosed = errors.New("ledger store is closed")
)

var notFoundByKind = map[Kind]error{
	KindPlatform:       ErrPlatformNotInitialized,
	KindListing:        ErrListingNotFound,
	KindLicense:        ErrLicenseNotFound,
	KindVerification:   ErrVerificationNotFound,
	KindOracleRegistry: ErrOracleRegistryNotInitialized,
	KindOracle:         ErrOracleNotFound,
	KindConsent:        ErrConsentNotFound,
	KindRegistration:   ErrRegistrationNotFound,
}

var existsByKind = map[Kind]error{
	KindPlatform:       ErrPlatformExists,
	KindListing:        ErrListingExists,
	KindLicense:        ErrLicenseExists,
	KindVerification:   ErrVerificationExists,
	KindOracleRegistry: ErrOracleRegistryExists,
	KindOracle:         ErrOracleExists,
	KindConsent:        ErrConsentExists,
	KindRegistration:   ErrRegistrationExists,
}

// ConsentHandle is the record handle of the consent request by requester on a listing.
func ConsentHandle(listingID string, requester types.Identity) string {
	return listingID + "/" + string(requester)
}
