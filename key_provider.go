package strongbox

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the per-file random salt stored at the start of a container
	SaltSize = 16

	// KeySize is the derived key size (AES-256)
	KeySize = 32

	// DefaultIterations is the PBKDF2 round count the container format uses
	DefaultIterations = 100000
)

// KeyProvider is an interface for providing encryption keys
type KeyProvider interface {
	// DeriveKey derives an encryption key from the given salt
	DeriveKey(salt []byte) ([]byte, error)

	// GenerateSalt generates a new random salt
	GenerateSalt() ([]byte, error)
}

// PasswordKeyProvider implements KeyProvider using PBKDF2
type PasswordKeyProvider struct {
	password []byte
	params   PBKDF2Params
}

// NewPasswordKeyProvider creates a password-based key provider. Zero fields
// in params take the container defaults.
func NewPasswordKeyProvider(password []byte, params PBKDF2Params) *PasswordKeyProvider {
	return &PasswordKeyProvider{
		password: password,
		params:   params.withDefaults(),
	}
}

// DeriveKey derives an encryption key from the password and salt. The caller
// owns the returned key and must Zero it.
func (p *PasswordKeyProvider) DeriveKey(salt []byte) ([]byte, error) {
	return DeriveKey(p.password, salt, p.params)
}

// GenerateSalt generates a new random salt
func (p *PasswordKeyProvider) GenerateSalt() ([]byte, error) {
	salt := make([]byte, p.params.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey runs PBKDF2 over password and salt
func DeriveKey(password, salt []byte, params PBKDF2Params) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	if len(salt) == 0 {
		return nil, NewValidationError("salt", len(salt), "salt cannot be empty")
	}
	params = params.withDefaults()

	if params.HashFunc != SHA256 {
		return nil, fmt.Errorf("unsupported hash function: %v", params.HashFunc)
	}
	return pbkdf2.Key(password, salt, params.Iterations, params.KeySize, sha256.New), nil
}

// Zero overwrites b with zeros
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
