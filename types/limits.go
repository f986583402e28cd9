package types

// Field and business bounds shared by the engines.
const (
	MaxTitleLength          = 100
	MaxDescriptionLength    = 500
	MaxURILength            = 200
	MaxContentHashLength    = 128
	MaxGeoRestrictionLength = 100
	MaxReasonLength         = 200

	MaxRoyaltyBps          = 5000
	MaxOwnersLimit         = 10_000
	MaxLicenseDurationDays = 3650 // 10 years
	MaxPaymentMultiplier   = 10
	MaxTransfers           = 3

	MaxOperators                = 64
	MaxHardwareIDLength         = 64
	MaxCertificationHashLength  = 200
	MaxDataHashLength           = 200
	MaxLocationLength           = 100
	MaxSensorReadings           = 50
	MaxSensorTypeLength         = 32
	MaxSensorUnitLength         = 16
	MaxVerificationsPerDayLimit = 1440 // one per minute

	MaxScore = 100
)
