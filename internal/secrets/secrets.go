// Package secrets protects marketplace credentials stored on disk.
//
// Values are sealed with AES-256-GCM under a key derived from a passphrase
// with Argon2id. The sealed form is a printable token suitable for a .env
// file: Prefix followed by base64(salt || nonce || ciphertext).
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// Prefix marks an encrypted value.
	Prefix = "dpenc1:"

	// Argon2 parameters (RFC 9106 recommendations)
	defaultArgon2Time    = 1
	defaultArgon2Memory  = 64 * 1024 // 64 MB
	defaultArgon2Threads = 4
	keyLength            = 32 // AES-256

	saltLength = 32
	gcmTagSize = 16
)

var (
	// ErrNoPassphrase is returned when the passphrase is empty.
	ErrNoPassphrase = errors.New("passphrase required")

	// ErrNotEncrypted is returned by Decrypt for values without Prefix.
	ErrNotEncrypted = errors.New("value is not encrypted")
)

// Params tunes the key derivation.
type Params struct {
	// Time is the number of Argon2 iterations.
	Time uint32
	// Memory is the amount of memory used in KB.
	Memory uint32
	// Threads is the degree of parallelism.
	Threads uint8
}

// DefaultParams returns the key derivation defaults.
func DefaultParams() Params {
	return Params{
		Time:    defaultArgon2Time,
		Memory:  defaultArgon2Memory,
		Threads: defaultArgon2Threads,
	}
}

// Sealer encrypts and decrypts values with fixed key derivation parameters.
type Sealer struct {
	params Params
}

// NewSealer returns a Sealer. Zero fields of params take their defaults.
func NewSealer(params Params) *Sealer {
	def := DefaultParams()
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.Memory == 0 {
		params.Memory = def.Memory
	}
	if params.Threads == 0 {
		params.Threads = def.Threads
	}
	return &Sealer{params: params}
}

func (s *Sealer) deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, s.params.Time, s.params.Memory, s.params.Threads, keyLength)
}

func (s *Sealer) aead(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext and returns a token starting with Prefix.
func (s *Sealer) Encrypt(plaintext, passphrase string) (string, error) {
	if passphrase == "" {
		return "", ErrNoPassphrase
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := s.aead(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := make([]byte, 0, saltLength+len(nonce)+len(plaintext)+gcm.Overhead())
	sealed = append(sealed, salt...)
	sealed = append(sealed, nonce...)
	sealed = gcm.Seal(sealed, nonce, []byte(plaintext), nil)

	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt.
func (s *Sealer) Decrypt(token, passphrase string) (string, error) {
	if !IsEncrypted(token) {
		return "", ErrNotEncrypted
	}
	if passphrase == "" {
		return "", ErrNoPassphrase
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(token, Prefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted value: %w", err)
	}
	if len(data) < saltLength+gcmTagSize {
		return "", fmt.Errorf("encrypted value too short")
	}

	salt, rest := data[:saltLength], data[saltLength:]
	gcm, err := s.aead(passphrase, salt)
	if err != nil {
		return "", err
	}
	if len(rest) < gcm.NonceSize()+gcm.Overhead() {
		return "", fmt.Errorf("encrypted value too short for nonce")
	}

	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed (wrong passphrase or corrupted data): %w", err)
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether value carries the encryption prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

var defaultSealer = NewSealer(DefaultParams())

// Encrypt seals plaintext with the default parameters.
func Encrypt(plaintext, passphrase string) (string, error) {
	return defaultSealer.Encrypt(plaintext, passphrase)
}

// Decrypt opens a token with the default parameters.
func Decrypt(token, passphrase string) (string, error) {
	return defaultSealer.Decrypt(token, passphrase)
}
