package strongbox

import (
	"fmt"
)

// Input validation helpers

// ValidatePassword rejects an empty password
func ValidatePassword(password []byte) error {
	if len(password) == 0 {
		return &ValidationError{
			Field:   "password",
			Message: "password cannot be empty",
			Err:     ErrEmptyPassword,
		}
	}
	return nil
}

// ValidateFilename rejects an empty original filename or one too long for the
// filename block
func ValidateFilename(name string) error {
	if name == "" {
		return &ValidationError{
			Field:   "filename",
			Message: "filename cannot be empty",
			Err:     ErrEmptyFilename,
		}
	}
	return ValidateFilenameLength(len(name))
}

// ValidateFilenameLength checks the encrypted filename length is in (0, MaxFilenameLength]
func ValidateFilenameLength(n int) error {
	if n <= 0 || n > MaxFilenameLength {
		return &ValidationError{
			Field:   "filename_length",
			Value:   n,
			Message: fmt.Sprintf("must be between 1 and %d bytes", MaxFilenameLength),
		}
	}
	return nil
}

// ValidateChunkLength checks a data chunk length is in (0, ChunkSize]
func ValidateChunkLength(n int) error {
	if n <= 0 || n > ChunkSize {
		return &ValidationError{
			Field:   "chunk_length",
			Value:   n,
			Message: fmt.Sprintf("must be between 1 and %d bytes", ChunkSize),
		}
	}
	return nil
}

// ValidateNonce checks if a nonce has the container nonce size
func ValidateNonce(nonce []byte, name string) error {
	if nonce == nil {
		return &ValidationError{
			Field:   name,
			Message: "nonce cannot be nil",
		}
	}
	if len(nonce) != NonceSize {
		return &ValidationError{
			Field:   name,
			Value:   len(nonce),
			Message: fmt.Sprintf("invalid nonce size: got %d bytes, expected %d bytes", len(nonce), NonceSize),
		}
	}
	return nil
}

// ValidateKey checks if a key has the correct size
func ValidateKey(key []byte) error {
	if key == nil {
		return &ValidationError{
			Field:   "key",
			Message: "key cannot be nil",
			Err:     ErrInvalidKey,
		}
	}
	if len(key) != KeySize {
		return &ValidationError{
			Field:   "key",
			Value:   len(key),
			Message: fmt.Sprintf("invalid key size: got %d bytes, expected %d bytes", len(key), KeySize),
			Err:     ErrInvalidKey,
		}
	}
	return nil
}

// ValidateFilePath checks if a file path is valid (not empty)
func ValidateFilePath(path string) error {
	if path == "" {
		return &ValidationError{
			Field:   "path",
			Message: "file path cannot be empty",
		}
	}
	return nil
}
