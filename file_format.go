package strongbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Container layout (all integers little-endian):
//
//	salt[16] | filenameNonce[12] | filenameTag[16] | filenameLen(i32) | encFilename[filenameLen]
//	bodyNonce[12]
//	repeat { chunkLen(i32) | ciphertext[chunkLen] | tag[16] } until chunkLen == 0
const (
	// MaxFilenameLength is the largest encrypted filename block accepted
	MaxFilenameLength = 1024

	// MinContainerSize is salt + filename nonce + filename tag + length field
	MinContainerSize = SaltSize + NonceSize + TagSize + 4
)

// ContainerHeader is everything in a container before the first chunk record
type ContainerHeader struct {
	Salt              []byte // Salt for key derivation
	FilenameNonce     []byte // Nonce for the filename block
	FilenameTag       []byte // Authentication tag for the filename block
	EncryptedFilename []byte // Ciphertext of the UTF-8 original filename
	BodyNonce         []byte // Base nonce for all body chunks
}

// Size returns the total size of the header in bytes
func (h *ContainerHeader) Size() int {
	return MinContainerSize + len(h.EncryptedFilename) + NonceSize
}

// Validate checks field sizes before the header is written
func (h *ContainerHeader) Validate() error {
	if len(h.Salt) != SaltSize {
		return NewValidationError("salt", len(h.Salt), fmt.Sprintf("must be %d bytes", SaltSize))
	}
	if err := ValidateNonce(h.FilenameNonce, "filename_nonce"); err != nil {
		return err
	}
	if len(h.FilenameTag) != TagSize {
		return NewValidationError("filename_tag", len(h.FilenameTag), fmt.Sprintf("must be %d bytes", TagSize))
	}
	if err := ValidateFilenameLength(len(h.EncryptedFilename)); err != nil {
		return err
	}
	return ValidateNonce(h.BodyNonce, "body_nonce")
}

// WriteTo writes the header to the given writer
func (h *ContainerHeader) WriteTo(w io.Writer) (int64, error) {
	if err := h.Validate(); err != nil {
		return 0, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, h.Size()))
	buf.Write(h.Salt)
	buf.Write(h.FilenameNonce)
	buf.Write(h.FilenameTag)
	if err := binary.Write(buf, binary.LittleEndian, int32(len(h.EncryptedFilename))); err != nil {
		return 0, fmt.Errorf("failed to write filename length: %w", err)
	}
	buf.Write(h.EncryptedFilename)
	buf.Write(h.BodyNonce)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadFrom reads the header from the given reader. Any short read or
// out-of-range length is reported as a CorruptionError.
func (h *ContainerHeader) ReadFrom(r io.Reader) (int64, error) {
	n, err := h.readFilenameBlock(r)
	if err != nil {
		return n, err
	}

	m, err := h.readBodyNonce(r)
	return n + m, err
}

// readBodyNonce reads the base nonce that follows the filename block
func (h *ContainerHeader) readBodyNonce(r io.Reader) (int64, error) {
	h.BodyNonce = make([]byte, NonceSize)
	n, err := io.ReadFull(r, h.BodyNonce)
	if err != nil {
		return int64(n), truncated("body nonce", err)
	}
	return int64(n), nil
}

// readFilenameBlock reads salt, filename nonce, tag, length and ciphertext.
// It stops before the body nonce so a probe reads no more than it needs.
func (h *ContainerHeader) readFilenameBlock(r io.Reader) (int64, error) {
	var fixed [MinContainerSize]byte
	n, err := io.ReadFull(r, fixed[:])
	total := int64(n)
	if err != nil {
		return total, truncated("header", err)
	}

	h.Salt = append([]byte(nil), fixed[:SaltSize]...)
	h.FilenameNonce = append([]byte(nil), fixed[SaltSize:SaltSize+NonceSize]...)
	h.FilenameTag = append([]byte(nil), fixed[SaltSize+NonceSize:SaltSize+NonceSize+TagSize]...)

	length := int32(binary.LittleEndian.Uint32(fixed[MinContainerSize-4:]))
	if err := ValidateFilenameLength(int(length)); err != nil {
		return total, &CorruptionError{Message: fmt.Sprintf("invalid filename length %d", length), Err: ErrMalformedContainer}
	}

	h.EncryptedFilename = make([]byte, length)
	n, err = io.ReadFull(r, h.EncryptedFilename)
	total += int64(n)
	if err != nil {
		return total, truncated("encrypted filename", err)
	}
	return total, nil
}

// truncated maps a short read to a CorruptionError and passes other I/O errors through
func truncated(field string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &CorruptionError{Message: "truncated " + field, Err: ErrMalformedContainer}
	}
	return fmt.Errorf("failed to read %s: %w", field, err)
}
