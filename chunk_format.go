package strongbox

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ChunkSize is the largest plaintext carried by one chunk record (1 MiB).
// The last data chunk may be shorter; a zero length terminates the stream.
const ChunkSize = 1024 * 1024

// ChunkNonce derives the nonce for chunk index from the body nonce: the first
// four bytes are copied and the last eight are XORed with le64(index).
// Distinct indices give distinct nonces.
func ChunkNonce(base []byte, index uint64) []byte {
	nonce := make([]byte, NonceSize)
	copy(nonce, base)

	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], index)
	for i := 0; i < 8; i++ {
		nonce[4+i] ^= idx[i]
	}
	return nonce
}

// ChunkAAD returns the associated data binding a chunk to its position
func ChunkAAD(index uint64) []byte {
	aad := make([]byte, 8)
	binary.LittleEndian.PutUint64(aad, index)
	return aad
}

// ChunkWriter writes chunk records to an underlying writer
type ChunkWriter struct {
	w      io.Writer
	prefix [4]byte
	count  uint64
}

// NewChunkWriter creates a chunk writer
func NewChunkWriter(w io.Writer) *ChunkWriter {
	return &ChunkWriter{w: w}
}

// WriteChunk writes one [len][ciphertext][tag] record
func (cw *ChunkWriter) WriteChunk(ciphertext, tag []byte) error {
	if err := ValidateChunkLength(len(ciphertext)); err != nil {
		return err
	}
	if len(tag) != TagSize {
		return NewValidationError("tag", len(tag), fmt.Sprintf("must be %d bytes", TagSize))
	}

	binary.LittleEndian.PutUint32(cw.prefix[:], uint32(len(ciphertext)))
	if _, err := cw.w.Write(cw.prefix[:]); err != nil {
		return fmt.Errorf("failed to write chunk length: %w", err)
	}
	if _, err := cw.w.Write(ciphertext); err != nil {
		return fmt.Errorf("failed to write chunk ciphertext: %w", err)
	}
	if _, err := cw.w.Write(tag); err != nil {
		return fmt.Errorf("failed to write chunk tag: %w", err)
	}
	cw.count++
	return nil
}

// Count returns the number of data chunks written
func (cw *ChunkWriter) Count() uint64 {
	return cw.count
}

// Close writes the zero-length terminator. It does not close the underlying writer.
func (cw *ChunkWriter) Close() error {
	binary.LittleEndian.PutUint32(cw.prefix[:], 0)
	if _, err := cw.w.Write(cw.prefix[:]); err != nil {
		return fmt.Errorf("failed to write terminator: %w", err)
	}
	return nil
}

// ChunkReader reads chunk records from an underlying reader
type ChunkReader struct {
	r      io.Reader
	prefix [4]byte
	buf    []byte
	tag    [TagSize]byte
	index  uint64
	done   bool
}

// NewChunkReader creates a chunk reader
func NewChunkReader(r io.Reader) *ChunkReader {
	return &ChunkReader{r: r}
}

// Next returns the index, ciphertext and tag of the next record, or io.EOF
// after the terminator. The returned slices are only valid until the next call.
func (cr *ChunkReader) Next() (uint64, []byte, []byte, error) {
	if cr.done {
		return 0, nil, nil, io.EOF
	}

	if _, err := io.ReadFull(cr.r, cr.prefix[:]); err != nil {
		return 0, nil, nil, cr.corrupt("truncated chunk length", err)
	}
	length := int32(binary.LittleEndian.Uint32(cr.prefix[:]))
	if length == 0 {
		if err := cr.expectEnd(); err != nil {
			return 0, nil, nil, err
		}
		cr.done = true
		return 0, nil, nil, io.EOF
	}
	if err := ValidateChunkLength(int(length)); err != nil {
		return 0, nil, nil, cr.corrupt(fmt.Sprintf("invalid chunk size %d", length), nil)
	}

	if cap(cr.buf) < int(length) {
		cr.buf = make([]byte, ChunkSize)
	}
	ciphertext := cr.buf[:length]
	if _, err := io.ReadFull(cr.r, ciphertext); err != nil {
		return 0, nil, nil, cr.corrupt("truncated chunk ciphertext", err)
	}
	if _, err := io.ReadFull(cr.r, cr.tag[:]); err != nil {
		return 0, nil, nil, cr.corrupt("truncated chunk tag", err)
	}

	index := cr.index
	cr.index++
	return index, ciphertext, cr.tag[:], nil
}

// expectEnd requires the terminator to be the last thing in the stream.
// A length field damaged to zero leaves records behind it.
func (cr *ChunkReader) expectEnd() error {
	var extra [1]byte
	_, err := io.ReadFull(cr.r, extra[:])
	switch {
	case err == io.EOF:
		return nil
	case err == nil:
		return &CorruptionError{ChunkIdx: cr.index, Message: "data after terminator", Err: ErrMalformedContainer}
	default:
		return fmt.Errorf("failed to read chunk %d: %w", cr.index, err)
	}
}

// Wipe zeroes the reader's internal buffers
func (cr *ChunkReader) Wipe() {
	Zero(cr.buf[:cap(cr.buf)])
	Zero(cr.tag[:])
}

func (cr *ChunkReader) corrupt(message string, err error) error {
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("failed to read chunk %d: %w", cr.index, err)
	}
	return &CorruptionError{ChunkIdx: cr.index, Message: message, Err: ErrMalformedContainer}
}
