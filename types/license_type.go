package types

import (
	"github.com/teranos/exchainge/errors"
)

// LicenseType is the ownership model a listing is sold under.
type LicenseType uint8

const (
	// ViewOnly grants read access without resale.
	ViewOnly LicenseType = iota + 1
	// ViewOnlyShared grants read access to a bounded number of holders.
	ViewOnlyShared
	// SharedOwnership sells transferable shares up to max_owners.
	SharedOwnership
	// Exclusive sells once; the listing closes on the sale.
	Exclusive
	// TransferableExclusive sells once and the license may be resold.
	TransferableExclusive
)

var licenseTypeNames = map[LicenseType]string{
	ViewOnly:              "view_only",
	ViewOnlyShared:        "view_only_shared",
	SharedOwnership:       "shared_ownership",
	Exclusive:             "exclusive",
	TransferableExclusive: "transferable_exclusive",
}

// ErrUnknownLicenseType rejects license type names and values outside the enum.
var ErrUnknownLicenseType = errors.Reason("license_type_unknown", errors.ErrValidation, "unknown license type")

// LicenseTypes lists every license type in declaration order.
func LicenseTypes() []LicenseType {
	return []LicenseType{ViewOnly, ViewOnlyShared, SharedOwnership, Exclusive, TransferableExclusive}
}

// ParseLicenseType parses the snake_case name of a license type.
func ParseLicenseType(s string) (LicenseType, error) {
	for t, name := range licenseTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownLicenseType, "%q", s)
}

// Valid reports whether t is one of the declared license types.
func (t LicenseType) Valid() bool {
	_, ok := licenseTypeNames[t]
	return ok
}

func (t LicenseType) String() string {
	if name, ok := licenseTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// IsExclusive reports whether the listing can be sold at most once.
func (t LicenseType) IsExclusive() bool {
	return t == Exclusive || t == TransferableExclusive
}

// Transferable reports whether licenses of this type may change owner.
func (t LicenseType) Transferable() bool {
	return t == SharedOwnership || t == TransferableExclusive
}

// MarshalText implements encoding.TextMarshaler.
func (t LicenseType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errors.Wrapf(ErrUnknownLicenseType, "value %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *LicenseType) UnmarshalText(text []byte) error {
	parsed, err := ParseLicenseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
