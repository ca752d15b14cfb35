package credentials

import (
	"errors"

	"github.com/EternisAI/silo-device/internal/secret"
)

var (
	ErrMissingSSID     = errors.New("network ssid is required")
	ErrMissingDeviceID = errors.New("device id is required")
)

// Record holds the configuration a device needs to join its network. Every
// field is a byte slice so it can be erased; call Wipe on every exit path of
// the code that owns the record.
type Record struct {
	SSID     []byte
	Password []byte
	DeviceID []byte
	APIKey   []byte
}

// NewRecord copies the given values into a new record.
func NewRecord(ssid, password, deviceID, apiKey []byte) *Record {
	return &Record{
		SSID:     clone(ssid),
		Password: clone(password),
		DeviceID: clone(deviceID),
		APIKey:   clone(apiKey),
	}
}

// Validate checks the record invariants. An empty password is allowed and
// means an open network.
func (r *Record) Validate() error {
	if len(r.SSID) == 0 {
		return ErrMissingSSID
	}
	if len(r.DeviceID) == 0 {
		return ErrMissingDeviceID
	}
	return nil
}

// Wipe zeroes every field and drops the slices. Safe on a nil record.
func (r *Record) Wipe() {
	if r == nil {
		return
	}
	secret.Wipe(r.SSID)
	secret.Wipe(r.Password)
	secret.Wipe(r.DeviceID)
	secret.Wipe(r.APIKey)
	r.SSID, r.Password, r.DeviceID, r.APIKey = nil, nil, nil, nil
}

// Equal reports whether both records hold the same values.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	return string(r.SSID) == string(other.SSID) &&
		string(r.Password) == string(other.Password) &&
		string(r.DeviceID) == string(other.DeviceID) &&
		string(r.APIKey) == string(other.APIKey)
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
