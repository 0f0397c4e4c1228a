package strongbox

import (
	"io"
	"os"

	"github.com/absfs/absfs"
	"github.com/sirupsen/logrus"
)

// Transformer is the streaming-AEAD file transform capability
type Transformer interface {
	// Encrypt writes a container for src to dst, storing originalName inside it
	Encrypt(src, dst string, password []byte, originalName string) error

	// Decrypt writes the plaintext of the container at src to dst and
	// returns the recovered original filename
	Decrypt(src, dst string, password []byte) (string, error)

	// ProbeOriginalName returns the filename stored in src, or false if it
	// cannot be recovered for any reason
	ProbeOriginalName(src string, password []byte) (string, bool)
}

// Engine encrypts and decrypts containers on a FileSystem
type Engine struct {
	fs     FileSystem
	cipher CipherSuite
	kdf    PBKDF2Params
	logger *logrus.Logger
}

var _ Transformer = (*Engine)(nil)

// New creates a crypto engine. A nil config uses AES-256-GCM, the container
// KDF parameters and the host filesystem.
func New(config *Config) (*Engine, error) {
	if config == nil {
		config = &Config{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	fsys := config.FS
	if fsys == nil {
		fsys = NewOSFS()
	}

	return &Engine{
		fs:     fsys,
		cipher: config.Cipher,
		kdf:    config.KDF.withDefaults(),
		logger: loggerOrDefault(config.Logger),
	}, nil
}

// FS returns the filesystem the engine operates on
func (e *Engine) FS() FileSystem {
	return e.fs
}

func (e *Engine) keys(password []byte) *PasswordKeyProvider {
	return NewPasswordKeyProvider(password, e.kdf)
}

// Encrypt encrypts src into a new container at dst. dst is created or
// truncated; on error its contents are undefined and the caller removes it.
func (e *Engine) Encrypt(src, dst string, password []byte, originalName string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if err := ValidateFilename(originalName); err != nil {
		return err
	}

	in, err := e.openSource(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := e.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return NewIOError("create", dst, err)
	}

	if err := e.EncryptStream(in, out, password, originalName); err != nil {
		out.Close()
		return NewEncryptionError("encrypt", src, err)
	}
	if err := out.Close(); err != nil {
		return NewIOError("close", dst, err)
	}

	e.logger.WithFields(logrus.Fields{"source": src, "dest": dst}).Debug("encrypted")
	return nil
}

// Decrypt decrypts the container at src into dst and returns the original
// filename. On error dst may hold partial plaintext that must not be used.
func (e *Engine) Decrypt(src, dst string, password []byte) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	in, err := e.openSource(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", NewIOError("stat", src, err)
	}
	if info.Size() < MinContainerSize {
		return "", &CorruptionError{Path: src, Message: "file too small to be an encrypted file", Err: ErrMalformedContainer}
	}

	out, err := e.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", NewIOError("create", dst, err)
	}

	name, err := e.DecryptStream(in, out, password)
	if err != nil {
		out.Close()
		return "", NewEncryptionError("decrypt", src, err)
	}
	if err := out.Close(); err != nil {
		return "", NewIOError("close", dst, err)
	}

	e.logger.WithFields(logrus.Fields{"source": src, "dest": dst}).Debug("decrypted")
	return name, nil
}

// ProbeOriginalName reads only the filename block of src. It never returns
// an error: a missing file, a short file, a bad length or a wrong password
// all give ("", false).
func (e *Engine) ProbeOriginalName(src string, password []byte) (string, bool) {
	if len(password) == 0 {
		return "", false
	}
	info, err := e.fs.Stat(src)
	if err != nil || info.IsDir() || info.Size() < MinContainerSize {
		return "", false
	}

	in, err := e.fs.Open(src)
	if err != nil {
		return "", false
	}
	defer in.Close()

	return e.probeStream(in, password)
}

func (e *Engine) openSource(src string) (absfs.File, error) {
	if err := ValidateFilePath(src); err != nil {
		return nil, err
	}
	info, err := e.fs.Stat(src)
	if err != nil {
		if isNotExist(err) {
			return nil, &IOError{Operation: "open", Path: src, Message: ErrSourceNotFound.Error(), Err: ErrSourceNotFound}
		}
		return nil, NewIOError("stat", src, err)
	}
	if info.IsDir() {
		return nil, NewValidationError("source", src, "source is a directory")
	}

	f, err := e.fs.Open(src)
	if err != nil {
		if isNotExist(err) {
			return nil, &IOError{Operation: "open", Path: src, Message: ErrSourceNotFound.Error(), Err: ErrSourceNotFound}
		}
		return nil, NewIOError("open", src, err)
	}
	return f, nil
}

func loggerOrDefault(l *logrus.Logger) *logrus.Logger {
	if l != nil {
		return l
	}
	l = logrus.New()
	l.SetOutput(io.Discard)
	return l
}
