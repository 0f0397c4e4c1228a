package strongbox

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// CipherSuite represents the AEAD algorithm used for the filename block and body chunks
type CipherSuite uint8

const (
	// CipherAES256GCM uses AES-256 with Galois/Counter Mode
	CipherAES256GCM CipherSuite = iota
	// CipherChaCha20Poly1305 uses ChaCha20 stream cipher with Poly1305 MAC
	CipherChaCha20Poly1305
)

// String returns the string representation of the cipher suite
func (c CipherSuite) String() string {
	switch c {
	case CipherAES256GCM:
		return "aes-256-gcm"
	case CipherChaCha20Poly1305:
		return "chacha20-poly1305"
	default:
		return "unknown"
	}
}

// ParseCipherSuite parses the names produced by CipherSuite.String
func ParseCipherSuite(s string) (CipherSuite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aes-256-gcm", "aes", "":
		return CipherAES256GCM, nil
	case "chacha20-poly1305", "chacha20", "chacha":
		return CipherChaCha20Poly1305, nil
	default:
		return 0, ErrUnsupportedCipher
	}
}

// FilenameFormat selects how an encrypted file is named on disk
type FilenameFormat uint8

const (
	// FormatFullEncrypt names the container after the hash of name and password
	FormatFullEncrypt FilenameFormat = iota
	// FormatKeepOriginal keeps the original filename
	FormatKeepOriginal
	// FormatNewExtension uses the hashed name plus a custom extension
	FormatNewExtension
)

// String returns the string representation of the filename format
func (f FilenameFormat) String() string {
	switch f {
	case FormatFullEncrypt:
		return "full-encrypt"
	case FormatKeepOriginal:
		return "keep-original"
	case FormatNewExtension:
		return "new-extension"
	default:
		return "unknown"
	}
}

// ParseFilenameFormat parses the names produced by FilenameFormat.String
func ParseFilenameFormat(s string) (FilenameFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full-encrypt", "fullencrypt", "full":
		return FormatFullEncrypt, nil
	case "keep-original", "keeporiginal", "keep":
		return FormatKeepOriginal, nil
	case "new-extension", "newextension", "extension":
		return FormatNewExtension, nil
	default:
		return 0, NewValidationError("format", s, "unknown filename format")
	}
}

// HashFunc represents hash function types for PBKDF2
type HashFunc uint8

// SHA256 is the only hash the container format is defined with
const SHA256 HashFunc = 0

// PBKDF2Params contains parameters for PBKDF2 key derivation
type PBKDF2Params struct {
	Iterations int      // Number of iterations; lowered only in tests, containers always use 100,000
	HashFunc   HashFunc // Hash function to use
	SaltSize   int      // Salt size in bytes (16 for the container format)
	KeySize    int      // Derived key size in bytes (32 for AES-256)
}

// DefaultPBKDF2Params returns the parameters the container format is defined with
func DefaultPBKDF2Params() PBKDF2Params {
	return PBKDF2Params{
		Iterations: DefaultIterations,
		HashFunc:   SHA256,
		SaltSize:   SaltSize,
		KeySize:    KeySize,
	}
}

func (p PBKDF2Params) withDefaults() PBKDF2Params {
	if p.Iterations == 0 {
		p.Iterations = DefaultIterations
	}
	if p.SaltSize == 0 {
		p.SaltSize = SaltSize
	}
	if p.KeySize == 0 {
		p.KeySize = KeySize
	}
	return p
}

// Config contains configuration for the crypto engine and the file operator
type Config struct {
	// Cipher suite to use for encryption. The container does not record it,
	// so both sides must agree; the default is AES-256-GCM.
	Cipher CipherSuite

	// KDF parameters. Zero fields take the container defaults.
	KDF PBKDF2Params

	// FS is the filesystem files are read from and committed to.
	// Nil means the host operating system.
	FS FileSystem

	// Logger receives per-file diagnostics. Nil means a default logrus logger.
	Logger *logrus.Logger
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.Cipher != CipherAES256GCM && c.Cipher != CipherChaCha20Poly1305 {
		return ErrUnsupportedCipher
	}
	kdf := c.KDF.withDefaults()
	if kdf.HashFunc != SHA256 {
		return NewValidationError("kdf.hash_func", kdf.HashFunc, "containers are keyed with PBKDF2-SHA256")
	}
	if kdf.Iterations < 1 {
		return NewValidationError("kdf.iterations", kdf.Iterations, "must be positive")
	}
	if kdf.SaltSize != SaltSize {
		return NewValidationError("kdf.salt_size", kdf.SaltSize, fmt.Sprintf("container salt is %d bytes", SaltSize))
	}
	if kdf.KeySize != KeySize {
		return NewValidationError("kdf.key_size", kdf.KeySize, fmt.Sprintf("key must be %d bytes", KeySize))
	}
	return nil
}

// Settings is the filename policy chosen by the user. It is loaded once by the
// caller and passed in explicitly with every batch.
type Settings struct {
	Format    FilenameFormat
	Extension string
}

// DefaultSettings returns the settings used when nothing has been saved yet
func DefaultSettings() Settings {
	return Settings{
		Format:    FormatFullEncrypt,
		Extension: DefaultExtension,
	}
}

// Normalize returns a copy with the extension normalized
func (s Settings) Normalize() Settings {
	s.Extension = NormalizeExtension(s.Extension)
	return s
}
