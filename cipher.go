package strongbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// NonceSize is the AEAD nonce size for both supported suites
	NonceSize = 12

	// TagSize is the AEAD authentication tag size
	TagSize = 16
)

// CipherEngine provides AEAD sealing with detached tags. Ciphertext is
// always the same length as the plaintext.
type CipherEngine interface {
	// Seal encrypts plaintext, returning ciphertext and its tag
	Seal(nonce, plaintext, aad []byte) (ciphertext, tag []byte, err error)

	// Open verifies tag and decrypts ciphertext. On failure it returns
	// ErrAuthFailed and no plaintext.
	Open(nonce, ciphertext, tag, aad []byte) ([]byte, error)

	// NonceSize returns the size of nonces in bytes
	NonceSize() int

	// Overhead returns the authentication tag size
	Overhead() int
}

// aeadEngine adapts a cipher.AEAD with an appended tag to CipherEngine
type aeadEngine struct {
	aead cipher.AEAD
}

func (e *aeadEngine) Seal(nonce, plaintext, aad []byte) ([]byte, []byte, error) {
	if len(nonce) != e.aead.NonceSize() {
		return nil, nil, fmt.Errorf("nonce must be %d bytes, got %d", e.aead.NonceSize(), len(nonce))
	}

	sealed := e.aead.Seal(nil, nonce, plaintext, aad)
	n := len(sealed) - e.aead.Overhead()
	return sealed[:n], sealed[n:], nil
}

func (e *aeadEngine) Open(nonce, ciphertext, tag, aad []byte) ([]byte, error) {
	if len(nonce) != e.aead.NonceSize() {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", e.aead.NonceSize(), len(nonce))
	}
	if len(tag) != e.aead.Overhead() {
		return nil, ErrAuthFailed
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := e.aead.Open(sealed[:0], nonce, sealed, aad)
	if err != nil {
		Zero(sealed)
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func (e *aeadEngine) NonceSize() int {
	return e.aead.NonceSize()
}

func (e *aeadEngine) Overhead() int {
	return e.aead.Overhead()
}

// AESGCMEngine implements CipherEngine using AES-256-GCM
type AESGCMEngine struct {
	aeadEngine
}

// NewAESGCMEngine creates a new AES-256-GCM cipher engine
func NewAESGCMEngine(key []byte) (*AESGCMEngine, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMEngine{aeadEngine{aead: aead}}, nil
}

// ChaCha20Poly1305Engine implements CipherEngine using ChaCha20-Poly1305
type ChaCha20Poly1305Engine struct {
	aeadEngine
}

// NewChaCha20Poly1305Engine creates a new ChaCha20-Poly1305 cipher engine
func NewChaCha20Poly1305Engine(key []byte) (*ChaCha20Poly1305Engine, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}

	return &ChaCha20Poly1305Engine{aeadEngine{aead: aead}}, nil
}

// NewCipherEngine creates a new cipher engine based on the cipher suite
func NewCipherEngine(suite CipherSuite, key []byte) (CipherEngine, error) {
	switch suite {
	case CipherAES256GCM:
		return NewAESGCMEngine(key)
	case CipherChaCha20Poly1305:
		return NewChaCha20Poly1305Engine(key)
	default:
		return nil, ErrUnsupportedCipher
	}
}

// GenerateNonce generates a random 12-byte nonce
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}
