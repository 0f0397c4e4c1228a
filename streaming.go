package strongbox

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// writeBufferSize holds one full chunk record
const writeBufferSize = 4 + ChunkSize + TagSize

// EncryptStream reads plaintext from r and writes a complete container to w.
// The key is derived from a fresh salt and wiped before returning.
func (e *Engine) EncryptStream(r io.Reader, w io.Writer, password []byte, originalName string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if err := ValidateFilename(originalName); err != nil {
		return err
	}

	keys := e.keys(password)
	salt, err := keys.GenerateSalt()
	if err != nil {
		return err
	}
	key, err := keys.DeriveKey(salt)
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}
	defer Zero(key)

	engine, err := NewCipherEngine(e.cipher, key)
	if err != nil {
		return fmt.Errorf("failed to create cipher engine: %w", err)
	}

	// Filename block, no AAD
	filenameNonce, err := GenerateNonce()
	if err != nil {
		return err
	}
	encryptedName, filenameTag, err := engine.Seal(filenameNonce, []byte(originalName), nil)
	if err != nil {
		return fmt.Errorf("failed to encrypt filename: %w", err)
	}

	bodyNonce, err := GenerateNonce()
	if err != nil {
		return err
	}

	header := &ContainerHeader{
		Salt:              salt,
		FilenameNonce:     filenameNonce,
		FilenameTag:       filenameTag,
		EncryptedFilename: encryptedName,
		BodyNonce:         bodyNonce,
	}

	bw := bufio.NewWriterSize(w, writeBufferSize)
	if _, err := header.WriteTo(bw); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	chunks := NewChunkWriter(bw)
	plaintext := make([]byte, ChunkSize)
	defer Zero(plaintext)

	for index := uint64(0); ; index++ {
		n, err := io.ReadFull(r, plaintext)
		if n > 0 {
			ciphertext, tag, sealErr := engine.Seal(ChunkNonce(bodyNonce, index), plaintext[:n], ChunkAAD(index))
			if sealErr != nil {
				return &EncryptionError{Operation: "encrypt", ChunkIdx: index, Message: sealErr.Error(), Err: sealErr}
			}
			if err := chunks.WriteChunk(ciphertext, tag); err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read plaintext: %w", err)
		}
	}

	if err := chunks.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

// DecryptStream reads a container from r, writes the plaintext body to w and
// returns the original filename. A filename block that does not verify is
// reported as ErrWrongPassword before any body bytes are written; a body
// chunk that does not verify aborts with ErrAuthFailed and whatever was
// already written to w must be discarded.
func (e *Engine) DecryptStream(r io.Reader, w io.Writer, password []byte) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	header := &ContainerHeader{}
	if _, err := header.readFilenameBlock(r); err != nil {
		return "", err
	}

	key, err := e.keys(password).DeriveKey(header.Salt)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}
	defer Zero(key)

	engine, err := NewCipherEngine(e.cipher, key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher engine: %w", err)
	}

	name, err := engine.Open(header.FilenameNonce, header.EncryptedFilename, header.FilenameTag, nil)
	if err != nil {
		return "", &AuthenticationError{Message: ErrWrongPassword.Error(), Err: ErrWrongPassword}
	}
	originalName := string(name)

	if _, err := header.readBodyNonce(r); err != nil {
		return "", err
	}

	bw := bufio.NewWriterSize(w, ChunkSize)
	chunks := NewChunkReader(r)
	defer chunks.Wipe()

	for {
		index, ciphertext, tag, err := chunks.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		plaintext, err := engine.Open(ChunkNonce(header.BodyNonce, index), ciphertext, tag, ChunkAAD(index))
		if err != nil {
			return "", &AuthenticationError{
				Message: fmt.Sprintf("decryption failed at chunk %d", index),
				Err:     ErrAuthFailed,
			}
		}
		_, err = bw.Write(plaintext)
		Zero(plaintext)
		if err != nil {
			return "", fmt.Errorf("failed to write plaintext: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("failed to write plaintext: %w", err)
	}
	return originalName, nil
}

// probeStream reads only the filename block and opens it
func (e *Engine) probeStream(r io.Reader, password []byte) (string, bool) {
	if len(password) == 0 {
		return "", false
	}

	header := &ContainerHeader{}
	if _, err := header.readFilenameBlock(r); err != nil {
		return "", false
	}

	key, err := e.keys(password).DeriveKey(header.Salt)
	if err != nil {
		return "", false
	}
	defer Zero(key)

	engine, err := NewCipherEngine(e.cipher, key)
	if err != nil {
		return "", false
	}
	name, err := engine.Open(header.FilenameNonce, header.EncryptedFilename, header.FilenameTag, nil)
	if err != nil {
		return "", false
	}
	return string(name), true
}
