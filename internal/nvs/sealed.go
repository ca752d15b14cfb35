package nvs

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/EternisAI/silo-device/internal/secret"
	"golang.org/x/crypto/chacha20poly1305"
)

var ErrInvalidSealKey = errors.New("seal key must be 32 bytes of hex")

// Backend is the KV surface Sealed decorates.
type Backend interface {
	GetU8(key string) (uint8, bool, error)
	SetU8(key string, value uint8) error
	GetString(key string, buf []byte) (int, bool, error)
	SetString(key string, value []byte) error
}

// Sealed encrypts string values with XChaCha20-Poly1305 before they reach
// the backend. Flags are stored in the clear. The namespace and key are bound
// as associated data so a ciphertext cannot be replayed under another key.
type Sealed struct {
	backend   Backend
	namespace string
	key       []byte
}

// ParseSealKey decodes a hex encoded 256-bit key.
func ParseSealKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		secret.Wipe(key)
		return nil, ErrInvalidSealKey
	}
	return key, nil
}

// NewSealed takes ownership of key and wipes it on Close.
func NewSealed(backend Backend, namespace string, key []byte) (*Sealed, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidSealKey
	}
	return &Sealed{backend: backend, namespace: namespace, key: key}, nil
}

func (s *Sealed) Close() error {
	secret.Wipe(s.key)
	return nil
}

func (s *Sealed) ad(key string) []byte {
	return []byte(s.namespace + "/" + key)
}

func (s *Sealed) GetU8(key string) (uint8, bool, error) {
	return s.backend.GetU8(key)
}

func (s *Sealed) SetU8(key string, value uint8) error {
	return s.backend.SetU8(key, value)
}

func (s *Sealed) SetString(key string, value []byte) error {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, value, s.ad(key))
	return s.backend.SetString(key, sealed)
}

// newStagingBuffer allocates the scratch space ciphertext is read into.
var newStagingBuffer = secret.New

// GetString decrypts into buf. buf must hold the plaintext; the ciphertext
// is staged in a locked secret buffer sized for it and released on return.
func (s *Sealed) GetString(key string, buf []byte) (int, bool, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create cipher: %w", err)
	}

	stagingBuf, err := newStagingBuffer(len(buf) + aead.NonceSize() + aead.Overhead())
	if err != nil {
		return 0, false, fmt.Errorf("failed to allocate staging buffer: %w", err)
	}
	defer stagingBuf.Close()
	staging := stagingBuf.Bytes()

	n, found, err := s.backend.GetString(key, staging)
	if err != nil || !found {
		return 0, found, err
	}
	if n < aead.NonceSize()+aead.Overhead() {
		return 0, true, fmt.Errorf("sealed value for %s is truncated", key)
	}

	nonce, ciphertext := staging[:aead.NonceSize()], staging[aead.NonceSize():n]
	plain, err := aead.Open(buf[:0], nonce, ciphertext, s.ad(key))
	if err != nil {
		secret.Wipe(buf)
		return 0, true, fmt.Errorf("failed to open sealed value for %s: %w", key, err)
	}
	return len(plain), true, nil
}
