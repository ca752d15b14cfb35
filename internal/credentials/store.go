// Package credentials persists the device's network configuration.
//
// The Store owns the mapping between record fields and persisted keys. It is
// shared between the boot flow and the portal's request handlers, so every
// operation runs under one mutex.
package credentials

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/EternisAI/silo-device/internal/secret"
)

const (
	Namespace = "credentials"

	KeyWiFiSSID    = "wifi_ssid"
	KeyWiFiPass    = "wifi_pass"
	KeyAPIKey      = "api_key"
	KeyDeviceID    = "device_id"
	KeyProvisioned = "provisioned"

	// ScratchSize bounds the length of any persisted field.
	ScratchSize = 256
)

// KV is the non-volatile key-value capability the store is built on. It is
// scoped to a single namespace.
type KV interface {
	GetU8(key string) (value uint8, found bool, err error)
	SetU8(key string, value uint8) error
	// GetString copies the value into buf and returns its length. It fails
	// when buf is too small.
	GetString(key string, buf []byte) (n int, found bool, err error)
	SetString(key string, value []byte) error
}

type Store struct {
	mu      sync.Mutex
	kv      KV
	scratch *secret.Buffer
}

func NewStore(kv KV) (*Store, error) {
	scratch, err := secret.New(ScratchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate scratch buffer: %w", err)
	}

	slog.Info("Credential store initialized", "namespace", Namespace, "locked_scratch", scratch.Locked())
	return &Store{kv: kv, scratch: scratch}, nil
}

// IsProvisioned reports whether a complete configuration has been stored.
// A read error counts as not provisioned.
func (s *Store) IsProvisioned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isProvisioned()
}

func (s *Store) isProvisioned() bool {
	val, found, err := s.kv.GetU8(KeyProvisioned)
	if err != nil {
		slog.Warn("Error checking provisioned status", "error", err)
		return false
	}
	return found && val == 1
}

// Store persists the record. The provisioned flag is written last, so a
// failed call never leaves the flag set over incomplete fields. The record
// is wiped before Store returns, whatever the outcome.
func (s *Store) Store(rec *Record) error {
	if rec == nil {
		return &StoreError{Op: "store", Err: errors.New("nil record")}
	}
	defer rec.Wipe()

	if err := rec.Validate(); err != nil {
		return &StoreError{Op: "store", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.SetU8(KeyProvisioned, 0); err != nil {
		return &StoreError{Op: "store", Key: KeyProvisioned, Err: err}
	}

	fields := []struct {
		key   string
		value []byte
	}{
		{KeyWiFiSSID, rec.SSID},
		{KeyWiFiPass, rec.Password},
		{KeyAPIKey, rec.APIKey},
		{KeyDeviceID, rec.DeviceID},
	}
	for _, f := range fields {
		if len(f.value) > ScratchSize {
			return &StoreError{Op: "store", Key: f.key, Err: fmt.Errorf("value exceeds %d bytes", ScratchSize)}
		}
		if err := s.kv.SetString(f.key, f.value); err != nil {
			return &StoreError{Op: "store", Key: f.key, Err: err}
		}
	}

	if err := s.kv.SetU8(KeyProvisioned, 1); err != nil {
		return &StoreError{Op: "store", Key: KeyProvisioned, Err: err}
	}

	slog.Info("Credentials stored securely")
	return nil
}

// Load reads the stored record. The caller owns the result and must Wipe it.
func (s *Store) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isProvisioned() {
		return nil, &StoreError{Op: "load", Err: ErrNotProvisioned}
	}

	rec := &Record{}
	targets := []struct {
		key string
		dst *[]byte
	}{
		{KeyWiFiSSID, &rec.SSID},
		{KeyWiFiPass, &rec.Password},
		{KeyAPIKey, &rec.APIKey},
		{KeyDeviceID, &rec.DeviceID},
	}

	buf := s.scratch.Bytes()
	for _, t := range targets {
		n, found, err := s.kv.GetString(t.key, buf)
		if err != nil {
			s.scratch.Wipe()
			rec.Wipe()
			return nil, &StoreError{Op: "load", Key: t.key, Err: err}
		}
		if found {
			*t.dst = clone(trimNUL(buf[:n]))
		}
		s.scratch.Wipe()
	}

	slog.Info("Credentials loaded from storage")
	return rec, nil
}

// Clear overwrites every field with an empty value and marks the device
// unprovisioned.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Warn("Clearing all stored credentials")

	for _, key := range []string{KeyWiFiSSID, KeyWiFiPass, KeyAPIKey, KeyDeviceID} {
		if err := s.kv.SetString(key, nil); err != nil {
			return &StoreError{Op: "clear", Key: key, Err: err}
		}
	}
	if err := s.kv.SetU8(KeyProvisioned, 0); err != nil {
		return &StoreError{Op: "clear", Key: KeyProvisioned, Err: err}
	}

	slog.Info("Credentials cleared")
	return nil
}

// Close releases the scratch buffer.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scratch.Close()
}

// trimNUL drops trailing NUL bytes left by C-string backends.
func trimNUL(b []byte) []byte {
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return b
}
