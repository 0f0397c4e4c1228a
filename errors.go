package strongbox

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can tell recoverable per-file
// conditions from the rest.
type Kind uint8

const (
	// KindUnexpected is anything not covered by another kind
	KindUnexpected Kind = iota
	// KindInvalidInput is an empty password, empty filename or unusable path
	KindInvalidInput
	// KindSourceNotFound means the input file does not exist
	KindSourceNotFound
	// KindMalformedContainer means bad length fields or a truncated stream
	KindMalformedContainer
	// KindAuthFailure means a tag did not verify: wrong password or corruption
	KindAuthFailure
	// KindNoOutput means encryption left an empty or missing scratch file
	KindNoOutput
	// KindSourceBusy means the source could not be removed because it is in use
	KindSourceBusy
	// KindDestinationBusy means the final rename was blocked by a file in use
	KindDestinationBusy
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindSourceNotFound:
		return "source not found"
	case KindMalformedContainer:
		return "malformed container"
	case KindAuthFailure:
		return "authentication failure"
	case KindNoOutput:
		return "encryption produced no output"
	case KindSourceBusy:
		return "source busy"
	case KindDestinationBusy:
		return "destination busy"
	default:
		return "unexpected"
	}
}

// ValidationError rejects a Config field or an operation argument
type ValidationError struct {
	Field   string
	Value   any
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return located("validation error", e.Field, 0, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// EncryptionError wraps a failed encrypt or decrypt of one file.
// ChunkIdx is only reported when non-zero.
type EncryptionError struct {
	Operation string
	Path      string
	ChunkIdx  uint64
	Message   string
	Err       error
}

func (e *EncryptionError) Error() string {
	return located(e.Operation+" error", e.Path, e.ChunkIdx, e.Message)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// IOError wraps a failed filesystem call. Operation is the call name
// ("open", "rename", "remove", ...).
type IOError struct {
	Operation string
	Path      string
	Message   string
	Err       error
}

func (e *IOError) Error() string {
	op := "io error: " + e.Operation
	if e.Path != "" {
		op += " " + e.Path
	}
	return located(op, "", 0, e.Message)
}

func (e *IOError) Unwrap() error { return e.Err }

// CorruptionError reports a container whose structure cannot be parsed.
// It matches ErrMalformedContainer unless Err says otherwise.
type CorruptionError struct {
	Path     string
	ChunkIdx uint64
	Message  string
	Err      error
}

func (e *CorruptionError) Error() string {
	return located("corruption error", e.Path, e.ChunkIdx, e.Message)
}

func (e *CorruptionError) Unwrap() error {
	if e.Err == nil {
		return ErrMalformedContainer
	}
	return e.Err
}

// AuthenticationError is a tag mismatch. The message never says
// whether the password was wrong or the data was damaged.
type AuthenticationError struct {
	Path    string
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	return located("authentication error", e.Path, 0, e.Message)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// located renders "prefix: subject (chunk n): msg", leaving out the empty parts.
func located(prefix, subject string, chunk uint64, msg string) string {
	var b strings.Builder
	b.WriteString(prefix)
	if subject != "" {
		b.WriteString(": ")
		b.WriteString(subject)
		if chunk > 0 {
			fmt.Fprintf(&b, " (chunk %d)", chunk)
		}
	}
	b.WriteString(": ")
	b.WriteString(msg)
	return b.String()
}

// BusyError reports that a file in use stopped the commit part way. The data
// is intact at SafePath; only the cleanup or final rename is missing.
type BusyError struct {
	Kind     Kind   // KindSourceBusy or KindDestinationBusy
	Path     string // The file that was busy
	SafePath string // Where the processed data now lives
	Message  string
	Err      error
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("%s: %s (data saved at %s)", e.Kind, e.Message, e.SafePath)
}

func (e *BusyError) Unwrap() error {
	return e.Err
}

// Common sentinel errors
var (
	ErrInvalidKey          = errors.New("invalid encryption key")
	ErrAuthFailed          = errors.New("authentication failed - data may be corrupted or tampered")
	ErrWrongPassword       = errors.New("wrong password or not an encrypted file")
	ErrMalformedContainer  = errors.New("malformed container")
	ErrUnsupportedCipher   = errors.New("unsupported cipher suite")
	ErrNilConfig           = errors.New("config cannot be nil")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrEmptyFilename       = errors.New("filename cannot be empty")
	ErrSourceNotFound      = errors.New("source file does not exist")
	ErrNoOutput            = errors.New("encryption produced no output")
	ErrFileBusy            = errors.New("file is in use by another process")
	ErrOperationInProgress = errors.New("another operation is already in progress")
)

// NewValidationError returns a *ValidationError for field
func NewValidationError(field string, value any, message string) error {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NewEncryptionError wraps err for the given operation on path
func NewEncryptionError(operation, path string, err error) error {
	return &EncryptionError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// NewIOError wraps a failed filesystem call on path
func NewIOError(operation, path string, err error) error {
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// NewCorruptionError reports a structural problem in the container at path
func NewCorruptionError(path string, message string) error {
	return &CorruptionError{Path: path, Message: message}
}

func newBusyError(kind Kind, path, safePath, message string, err error) *BusyError {
	return &BusyError{Kind: kind, Path: path, SafePath: safePath, Message: message, Err: err}
}

func isA[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool { return isA[*ValidationError](err) }

// IsEncryptionError reports whether err wraps an *EncryptionError.
func IsEncryptionError(err error) bool { return isA[*EncryptionError](err) }

// IsIOError reports whether err wraps an *IOError.
func IsIOError(err error) bool { return isA[*IOError](err) }

// IsCorruptionError reports whether err wraps a *CorruptionError.
func IsCorruptionError(err error) bool { return isA[*CorruptionError](err) }

// IsAuthenticationError reports whether err wraps an *AuthenticationError.
func IsAuthenticationError(err error) bool { return isA[*AuthenticationError](err) }

// IsBusyError reports whether err wraps a *BusyError.
func IsBusyError(err error) bool { return isA[*BusyError](err) }

// KindOf classifies err. Nil maps to KindUnexpected; callers check for nil first.
func KindOf(err error) Kind {
	var be *BusyError
	switch {
	case errors.As(err, &be):
		return be.Kind
	case IsAuthenticationError(err), errors.Is(err, ErrAuthFailed), errors.Is(err, ErrWrongPassword):
		return KindAuthFailure
	case IsCorruptionError(err), errors.Is(err, ErrMalformedContainer):
		return KindMalformedContainer
	case errors.Is(err, ErrSourceNotFound):
		return KindSourceNotFound
	case errors.Is(err, ErrNoOutput):
		return KindNoOutput
	case IsValidationError(err), errors.Is(err, ErrEmptyPassword), errors.Is(err, ErrEmptyFilename):
		return KindInvalidInput
	default:
		return KindUnexpected
	}
}
