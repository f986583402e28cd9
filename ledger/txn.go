package ledger

import (
	"encoding/json"
	"time"

	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/types"
)

// row is one stored record. Owner and Parent are lookup columns derived from
// the body on every write.
type row struct {
	Kind      Kind
	Handle    string
	Owner     string
	Parent    string
	Body      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// index selects a lookup column for backend.list.
type index int

const (
	byOwner index = iota
	byParent
)

var (
	errRowMissing = errors.New("row missing")
	errRowExists  = errors.New("row exists")
)

// backend is the storage a txn runs over. Implementations report absent and
// duplicate keys with errRowMissing and errRowExists.
type backend interface {
	get(kind Kind, handle string) (row, error)
	insert(r row) error
	update(r row) error
	remove(kind Kind, handle string) error
	list(kind Kind, by index, value string) ([]row, error)
}

// txn implements Tx over a backend. The memory and SQLite stores share it,
// so record encoding and capability rules are identical in both.
type txn struct {
	b   backend
	now func() time.Time
}

var _ Tx = (*txn)(nil)

func lookupColumns(v any) (owner, parent string) {
	switch r := v.(type) {
	case types.Listing:
		return string(r.Provider), ""
	case types.License:
		return string(r.Ownership.Owner), r.ListingID
	case types.VerificationRecord:
		return string(r.Verifier), r.ListingID
	case types.Oracle:
		return string(r.Operator), ""
	case types.ConsentRequest:
		return string(r.Requester), r.ListingID
	case types.DatasetRegistration:
		return string(r.Owner), ""
	default:
		return "", ""
	}
}

func (t *txn) translate(kind Kind, handle string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errRowMissing):
		return errors.Wrapf(notFoundByKind[kind], "%s %s", kind, handle)
	case errors.Is(err, errRowExists):
		return errors.Wrapf(existsByKind[kind], "%s %s", kind, handle)
	default:
		return errors.Wrapf(err, "%s %s", kind, handle)
	}
}

func (t *txn) create(kind Kind, handle string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s %s", kind, handle)
	}
	owner, parent := lookupColumns(v)
	now := t.now()
	return t.translate(kind, handle, t.b.insert(row{
		Kind:      kind,
		Handle:    handle,
		Owner:     owner,
		Parent:    parent,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func load[R any](t *txn, kind Kind, handle string) (R, row, error) {
	var rec R
	r, err := t.b.get(kind, handle)
	if err != nil {
		return rec, r, t.translate(kind, handle, err)
	}
	if err := json.Unmarshal(r.Body, &rec); err != nil {
		return rec, r, errors.Wrapf(err, "decode %s %s", kind, handle)
	}
	return rec, r, nil
}

func loadAll[R any](t *txn, kind Kind, by index, value string) ([]R, error) {
	rows, err := t.b.list(kind, by, value)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", kind)
	}
	out := make([]R, 0, len(rows))
	for _, r := range rows {
		var rec R
		if err := json.Unmarshal(r.Body, &rec); err != nil {
			return nil, errors.Wrapf(err, "decode %s %s", kind, r.Handle)
		}
		out = append(out, rec)
	}
	return out, nil
}

// mutate is the single write path for existing records. fn sees an
// independent decoded copy of the record and may change only the sub-struct
// selected by part; stamp then applies record bookkeeping such as UpdatedAt.
// Nothing is written when fn fails.
func mutate[R, S any](t *txn, kind Kind, handle string, part func(*R) *S, stamp func(*R), fn func(view R, s *S) error) (R, error) {
	view, r, err := load[R](t, kind, handle)
	if err != nil {
		return view, err
	}
	var rec R
	if err := json.Unmarshal(r.Body, &rec); err != nil {
		return view, errors.Wrapf(err, "decode %s %s", kind, handle)
	}

	if err := fn(view, part(&rec)); err != nil {
		return view, err
	}
	if stamp != nil {
		stamp(&rec)
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return view, errors.Wrapf(err, "encode %s %s", kind, handle)
	}
	r.Owner, r.Parent = lookupColumns(rec)
	r.Body = body
	r.UpdatedAt = t.now()
	if err := t.translate(kind, handle, t.b.update(r)); err != nil {
		return view, err
	}

	// Return the stored form so callers see exactly what a later read returns
	var out R
	if err := json.Unmarshal(body, &out); err != nil {
		return view, errors.Wrapf(err, "decode %s %s", kind, handle)
	}
	return out, nil
}

// Reader

func (t *txn) Platform() (types.Platform, error) {
	p, _, err := load[types.Platform](t, KindPlatform, singletonHandle)
	return p, err
}

func (t *txn) Listing(id string) (types.Listing, error) {
	l, _, err := load[types.Listing](t, KindListing, id)
	return l, err
}

func (t *txn) ListingsByProvider(provider types.Identity) ([]types.Listing, error) {
	return loadAll[types.Listing](t, KindListing, byOwner, string(provider))
}

func (t *txn) License(id string) (types.License, error) {
	l, _, err := load[types.License](t, KindLicense, id)
	return l, err
}

func (t *txn) LicensesByOwner(owner types.Identity) ([]types.License, error) {
	return loadAll[types.License](t, KindLicense, byOwner, string(owner))
}

func (t *txn) LicensesByListing(listingID string) ([]types.License, error) {
	return loadAll[types.License](t, KindLicense, byParent, listingID)
}

func (t *txn) Verification(listingID string) (types.VerificationRecord, error) {
	v, _, err := load[types.VerificationRecord](t, KindVerification, listingID)
	return v, err
}

func (t *txn) OracleRegistry() (types.OracleRegistry, error) {
	r, _, err := load[types.OracleRegistry](t, KindOracleRegistry, singletonHandle)
	return r, err
}

func (t *txn) Oracle(id string) (types.Oracle, error) {
	o, _, err := load[types.Oracle](t, KindOracle, id)
	return o, err
}

func (t *txn) OraclesByOperator(operator types.Identity) ([]types.Oracle, error) {
	return loadAll[types.Oracle](t, KindOracle, byOwner, string(operator))
}

func (t *txn) Consent(listingID string, requester types.Identity) (types.ConsentRequest, error) {
	c, _, err := load[types.ConsentRequest](t, KindConsent, ConsentHandle(listingID, requester))
	return c, err
}

func (t *txn) Registration(key string) (types.DatasetRegistration, error) {
	r, _, err := load[types.DatasetRegistration](t, KindRegistration, key)
	return r, err
}

func (t *txn) RegistrationsByOwner(owner types.Identity) ([]types.DatasetRegistration, error) {
	return loadAll[types.DatasetRegistration](t, KindRegistration, byOwner, string(owner))
}

// Platform

func (t *txn) CreatePlatform(p types.Platform) error {
	return t.create(KindPlatform, singletonHandle, p)
}

func (t *txn) UpdatePlatformSettings(at time.Time, fn func(types.Platform, *types.PlatformSettings) error) (types.Platform, error) {
	return mutate(t, KindPlatform, singletonHandle,
		func(p *types.Platform) *types.PlatformSettings { return &p.Settings },
		func(p *types.Platform) { p.UpdatedAt = at },
		fn)
}

func (t *txn) UpdatePlatformTotals(at time.Time, fn func(types.Platform, *types.PlatformTotals) error) (types.Platform, error) {
	return mutate(t, KindPlatform, singletonHandle,
		func(p *types.Platform) *types.PlatformTotals { return &p.Totals },
		func(p *types.Platform) { p.UpdatedAt = at },
		fn)
}

// Listings

func (t *txn) CreateListing(l types.Listing) error {
	return t.create(KindListing, l.ID, l)
}

func stampListing(at time.Time) func(*types.Listing) {
	return func(l *types.Listing) { l.UpdatedAt = at }
}

func (t *txn) UpdateListingTerms(id string, at time.Time, fn func(types.Listing, *types.Terms) error) (types.Listing, error) {
	return mutate(t, KindListing, id,
		func(l *types.Listing) *types.Terms { return &l.Terms },
		stampListing(at), fn)
}

func (t *txn) UpdateListingDeactivation(id string, at time.Time, fn func(types.Listing, *types.Deactivation) error) (types.Listing, error) {
	return mutate(t, KindListing, id,
		func(l *types.Listing) *types.Deactivation { return &l.Deactivation },
		stampListing(at), fn)
}

func (t *txn) UpdateListingVerification(id string, at time.Time, fn func(types.Listing, *types.VerificationState) error) (types.Listing, error) {
	return mutate(t, KindListing, id,
		func(l *types.Listing) *types.VerificationState { return &l.Verification },
		stampListing(at), fn)
}

func (t *txn) UpdateListingSales(id string, at time.Time, fn func(types.Listing, *types.SalesState) error) (types.Listing, error) {
	return mutate(t, KindListing, id,
		func(l *types.Listing) *types.SalesState { return &l.Sales },
		stampListing(at), fn)
}

// Verification records are keyed by listing, so a second insert for the
// same listing is rejected.
func (t *txn) CreateVerification(rec types.VerificationRecord) error {
	return t.create(KindVerification, rec.ListingID, rec)
}

// Licenses

func (t *txn) CreateLicense(l types.License) error {
	return t.create(KindLicense, l.ID, l)
}

func (t *txn) UpdateLicenseOwnership(id string, fn func(types.License, *types.Ownership) error) (types.License, error) {
	return mutate(t, KindLicense, id,
		func(l *types.License) *types.Ownership { return &l.Ownership },
		nil, fn)
}

func (t *txn) UpdateLicenseUsage(id string, fn func(types.License, *types.Usage) error) (types.License, error) {
	return mutate(t, KindLicense, id,
		func(l *types.License) *types.Usage { return &l.Usage },
		nil, fn)
}

// Oracles

func (t *txn) CreateOracleRegistry(r types.OracleRegistry) error {
	return t.create(KindOracleRegistry, singletonHandle, r)
}

func (t *txn) UpdateOracleRegistry(at time.Time, fn func(*types.OracleRegistry) error) (types.OracleRegistry, error) {
	return mutate(t, KindOracleRegistry, singletonHandle,
		func(r *types.OracleRegistry) *types.OracleRegistry { return r },
		func(r *types.OracleRegistry) { r.UpdatedAt = at },
		func(_ types.OracleRegistry, r *types.OracleRegistry) error { return fn(r) })
}

func (t *txn) CreateOracle(o types.Oracle) error {
	return t.create(KindOracle, o.ID, o)
}

func (t *txn) UpdateOracleStatus(id string, fn func(types.Oracle, *types.OracleStatus) error) (types.Oracle, error) {
	return mutate(t, KindOracle, id,
		func(o *types.Oracle) *types.OracleStatus { return &o.Status },
		nil, fn)
}

func (t *txn) UpdateOracleQuota(id string, fn func(types.Oracle, *types.OracleQuota) error) (types.Oracle, error) {
	return mutate(t, KindOracle, id,
		func(o *types.Oracle) *types.OracleQuota { return &o.Quota },
		nil, fn)
}

// Consent

func (t *txn) CreateConsent(c types.ConsentRequest) error {
	return t.create(KindConsent, ConsentHandle(c.ListingID, c.Requester), c)
}

func (t *txn) UpdateConsentDecision(listingID string, requester types.Identity, fn func(types.ConsentRequest, *types.ConsentDecision) error) (types.ConsentRequest, error) {
	return mutate(t, KindConsent, ConsentHandle(listingID, requester),
		func(c *types.ConsentRequest) *types.ConsentDecision { return &c.Decision },
		nil, fn)
}

func (t *txn) CloseConsent(listingID string, requester types.Identity) error {
	handle := ConsentHandle(listingID, requester)
	return t.translate(KindConsent, handle, t.b.remove(KindConsent, handle))
}

// Dataset registrations

func (t *txn) CreateRegistration(r types.DatasetRegistration) error {
	return t.create(KindRegistration, r.Key, r)
}

func (t *txn) UpdateRegistrationHash(key string, at time.Time, fn func(types.DatasetRegistration, *types.Digest) error) (types.DatasetRegistration, error) {
	return mutate(t, KindRegistration, key,
		func(r *types.DatasetRegistration) *types.Digest { return &r.Hash },
		func(r *types.DatasetRegistration) { r.UpdatedAt = at },
		fn)
}

func (t *txn) RemoveRegistration(key string) error {
	return t.translate(KindRegistration, key, t.b.remove(KindRegistration, key))
}
