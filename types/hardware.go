package types

import (
	"encoding/hex"
	"encoding/json"

	"github.com/teranos/exchainge/errors"
)

// HardwareType classifies the device an oracle runs on.
type HardwareType string

const (
	HardwareDrone          HardwareType = "drone"
	HardwareRobot          HardwareType = "robot"
	HardwareIoTSensor      HardwareType = "iot_sensor"
	HardwareSatellite      HardwareType = "satellite"
	HardwareWeatherStation HardwareType = "weather_station"
	HardwareVehicle        HardwareType = "vehicle"
	HardwareCustom         HardwareType = "custom"
)

// ErrUnknownHardwareType rejects hardware types outside the enum.
var ErrUnknownHardwareType = errors.Reason("hardware_type_unknown", errors.ErrValidation, "unknown hardware type")

// ErrInvalidTrustedHardware rejects malformed vendor attestation payloads.
var ErrInvalidTrustedHardware = errors.Reason("trusted_hardware_invalid", errors.ErrValidation, "invalid trusted hardware payload")

// Valid reports whether h is a declared hardware type.
func (h HardwareType) Valid() bool {
	switch h {
	case HardwareDrone, HardwareRobot, HardwareIoTSensor, HardwareSatellite,
		HardwareWeatherStation, HardwareVehicle, HardwareCustom:
		return true
	}
	return false
}

// ParseHardwareType parses a hardware type name.
func ParseHardwareType(s string) (HardwareType, error) {
	h := HardwareType(s)
	if !h.Valid() {
		return "", errors.Wrapf(ErrUnknownHardwareType, "%q", s)
	}
	return h, nil
}

// HardwareVendor tags a TrustedHardware variant.
type HardwareVendor string

const (
	VendorDJIDrone     HardwareVendor = "dji_drone"
	VendorNvidiaJetson HardwareVendor = "nvidia_jetson"
	VendorQualcommRB5  HardwareVendor = "qualcomm_rb5"
	VendorOther        HardwareVendor = "other"
)

const maxVendorFieldLength = 64

// TrustedHardware is the vendor-specific attestation root an oracle was
// certified against. The set of variants is closed.
type TrustedHardware interface {
	Vendor() HardwareVendor
	Validate() error
	trustedHardware()
}

// DJIDrone identifies a DJI airframe by serial and firmware build.
type DJIDrone struct {
	Serial       string `json:"serial"`
	FirmwareHash string `json:"firmware_hash"`
}

// NvidiaJetson identifies a Jetson module by device and silicon id.
type NvidiaJetson struct {
	DeviceID  string   `json:"device_id"`
	SiliconID [16]byte `json:"silicon_id"`
}

// QualcommRB5 identifies a Qualcomm RB5 board.
type QualcommRB5 struct {
	DeviceID     string `json:"device_id"`
	FirmwareHash string `json:"firmware_hash"`
}

// OtherHardware carries no vendor attestation.
type OtherHardware struct{}

func (DJIDrone) Vendor() HardwareVendor      { return VendorDJIDrone }
func (NvidiaJetson) Vendor() HardwareVendor  { return VendorNvidiaJetson }
func (QualcommRB5) Vendor() HardwareVendor   { return VendorQualcommRB5 }
func (OtherHardware) Vendor() HardwareVendor { return VendorOther }

func (DJIDrone) trustedHardware()      {}
func (NvidiaJetson) trustedHardware()  {}
func (QualcommRB5) trustedHardware()   {}
func (OtherHardware) trustedHardware() {}

func (h DJIDrone) Validate() error {
	if err := checkVendorField("serial", h.Serial); err != nil {
		return err
	}
	return checkFirmwareHash(h.FirmwareHash)
}

func (h NvidiaJetson) Validate() error {
	if err := checkVendorField("device_id", h.DeviceID); err != nil {
		return err
	}
	if h.SiliconID == [16]byte{} {
		return errors.Wrap(ErrInvalidTrustedHardware, "silicon_id is zero")
	}
	return nil
}

func (h QualcommRB5) Validate() error {
	if err := checkVendorField("device_id", h.DeviceID); err != nil {
		return err
	}
	return checkFirmwareHash(h.FirmwareHash)
}

func (OtherHardware) Validate() error { return nil }

func checkVendorField(name, value string) error {
	if value == "" || len(value) > maxVendorFieldLength {
		return errors.Wrapf(ErrInvalidTrustedHardware, "%s must be 1..%d characters", name, maxVendorFieldLength)
	}
	return nil
}

func checkFirmwareHash(h string) error {
	raw, err := hex.DecodeString(h)
	if err != nil || len(raw) != 32 {
		return errors.Wrapf(ErrInvalidTrustedHardware, "firmware_hash %q must be 64 hex characters", h)
	}
	return nil
}

type hardwareEnvelope struct {
	Kind    HardwareVendor  `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalTrustedHardware encodes h as {"kind": ..., "payload": {...}}.
func MarshalTrustedHardware(h TrustedHardware) ([]byte, error) {
	if h == nil {
		h = OtherHardware{}
	}
	env := hardwareEnvelope{Kind: h.Vendor()}
	if _, other := h.(OtherHardware); !other {
		payload, err := json.Marshal(h)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal %s payload", h.Vendor())
		}
		env.Payload = payload
	}
	return json.Marshal(env)
}

// UnmarshalTrustedHardware decodes the envelope written by MarshalTrustedHardware.
func UnmarshalTrustedHardware(data []byte) (TrustedHardware, error) {
	var env hardwareEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "decode trusted hardware envelope")
	}

	var h TrustedHardware
	switch env.Kind {
	case VendorDJIDrone:
		var v DJIDrone
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, errors.Wrap(err, "decode dji_drone payload")
		}
		h = v
	case VendorNvidiaJetson:
		var v NvidiaJetson
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, errors.Wrap(err, "decode nvidia_jetson payload")
		}
		h = v
	case VendorQualcommRB5:
		var v QualcommRB5
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, errors.Wrap(err, "decode qualcomm_rb5 payload")
		}
		h = v
	case VendorOther, "":
		h = OtherHardware{}
	default:
		return nil, errors.Wrapf(ErrInvalidTrustedHardware, "unknown vendor %q", env.Kind)
	}
	return h, nil
}
