package strongbox

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// encryptedSuffix names the second copy when an encrypted file keeps the source name
	encryptedSuffix = ".strongbox"

	// decryptedSuffix names the second copy when a decrypted file keeps the source name
	decryptedSuffix = ".decrypted"
)

// Committer is the file-transaction capability: it turns one source file
// into its encrypted or decrypted replacement on disk.
type Committer interface {
	EncryptFile(src string, password []byte, settings Settings) (*Result, error)
	DecryptFile(src string, password []byte) (*Result, error)
}

// Result describes a committed file
type Result struct {
	Source       string     // The file that was processed
	Path         string     // Where the processed data now lives
	OriginalName string     // Filename recovered from the container (decrypt only)
	Warning      *BusyError // Set when a busy file left the commit half done
}

// Transactor commits Transformer output through a scratch file so that at
// every step at least one complete copy of the data exists on disk.
type Transactor struct {
	fs          FileSystem
	transformer Transformer
	logger      *logrus.Logger
}

var _ Committer = (*Transactor)(nil)

// NewTransactor creates a file operator on fsys
func NewTransactor(fsys FileSystem, transformer Transformer, logger *logrus.Logger) *Transactor {
	return &Transactor{
		fs:          fsys,
		transformer: transformer,
		logger:      loggerOrDefault(logger),
	}
}

// IsBusy reports whether err means a file is locked by another process
func IsBusy(err error) bool {
	return errors.Is(err, ErrFileBusy) || platformBusy(err)
}

// EncryptFile encrypts src in place. The output name follows settings; the
// source is removed once the container is in its final place.
func (t *Transactor) EncryptFile(src string, password []byte, settings Settings) (res *Result, err error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	settings = settings.Normalize()

	dir, name := splitPath(t.fs, src)
	dest := joinPath(t.fs, dir, BuildEncryptedName(name, string(password), settings.Format, settings.Extension))
	scratch := t.scratchPath(dir)

	defer func() {
		if err != nil {
			t.removeScratch(scratch)
		}
	}()

	if err := t.transformer.Encrypt(src, scratch, password, name); err != nil {
		return nil, err
	}
	if err := t.checkOutput(scratch, false); err != nil {
		return nil, err
	}

	if settings.Format == FormatKeepOriginal || dest == src {
		return t.swap(src, scratch, dest, src+encryptedSuffix)
	}
	if err := t.clearDestination(src, dest); err != nil {
		return nil, err
	}
	return t.move(src, scratch, dest)
}

// DecryptFile decrypts src in place under the filename stored in the
// container. An existing file with that name is never overwritten; the
// output gets a " (n)" suffix instead.
func (t *Transactor) DecryptFile(src string, password []byte) (res *Result, err error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	dir, name := splitPath(t.fs, src)
	scratch := t.scratchPath(dir)

	defer func() {
		if err != nil {
			t.removeScratch(scratch)
		}
	}()

	originalName, err := t.transformer.Decrypt(src, scratch, password)
	if err != nil {
		return nil, err
	}
	if err := checkRecoveredName(originalName); err != nil {
		return nil, &CorruptionError{Path: src, Message: err.Error(), Err: ErrMalformedContainer}
	}
	if err := t.checkOutput(scratch, true); err != nil {
		return nil, err
	}

	if strings.EqualFold(name, originalName) {
		res, err = t.swap(src, scratch, joinPath(t.fs, dir, originalName), src+decryptedSuffix)
	} else {
		res, err = t.move(src, scratch, freeName(t.fs, dir, originalName))
	}
	if res != nil {
		res.OriginalName = originalName
	}
	return res, err
}

// swap commits when the output replaces a file of the same name: scratch is
// renamed to intermediate so two copies exist, the source is removed, then
// intermediate takes the final name. A busy file stops the sequence with the
// data safe at intermediate.
func (t *Transactor) swap(src, scratch, dest, intermediate string) (*Result, error) {
	if exists(t.fs, intermediate) {
		return nil, &IOError{
			Operation: "rename",
			Path:      intermediate,
			Message:   "intermediate file already exists; source left untouched",
			Err:       fs.ErrExist,
		}
	}
	if err := t.fs.Rename(scratch, intermediate); err != nil {
		return nil, NewIOError("rename", scratch, err)
	}
	res := &Result{Source: src, Path: intermediate}

	if err := t.fs.Remove(src); err != nil {
		if IsBusy(err) {
			res.Warning = newBusyError(KindSourceBusy, src, intermediate, "source is in use and was not replaced", err)
			t.warn(res.Warning)
			return res, nil
		}
		return nil, &IOError{
			Operation: "remove",
			Path:      src,
			Message:   fmt.Sprintf("%v (output saved at %s)", err, intermediate),
			Err:       err,
		}
	}

	// A name differing only in case from the source is a separate file on a
	// case-sensitive filesystem.
	if exists(t.fs, dest) {
		dir, name := splitPath(t.fs, dest)
		dest = freeName(t.fs, dir, name)
	}
	if err := t.fs.Rename(intermediate, dest); err != nil {
		if IsBusy(err) {
			res.Warning = newBusyError(KindDestinationBusy, dest, intermediate, "final rename was blocked", err)
			t.warn(res.Warning)
			return res, nil
		}
		return nil, &IOError{
			Operation: "rename",
			Path:      intermediate,
			Message:   fmt.Sprintf("%v (output saved at %s)", err, intermediate),
			Err:       err,
		}
	}

	res.Path = dest
	return res, nil
}

// move commits when the output has a name of its own: scratch is renamed to
// dest and the source is removed. A busy source is only a warning because the
// output is already complete.
func (t *Transactor) move(src, scratch, dest string) (*Result, error) {
	if err := t.fs.Rename(scratch, dest); err != nil {
		return nil, NewIOError("rename", scratch, err)
	}
	res := &Result{Source: src, Path: dest}

	if err := t.fs.Remove(src); err != nil {
		if IsBusy(err) {
			res.Warning = newBusyError(KindSourceBusy, src, dest, "output written but source is in use and was not removed", err)
			t.warn(res.Warning)
			return res, nil
		}
		return nil, &IOError{
			Operation: "remove",
			Path:      src,
			Message:   fmt.Sprintf("%v (output saved at %s)", err, dest),
			Err:       err,
		}
	}
	return res, nil
}

// clearDestination removes an earlier output occupying dest. Encrypting the
// same source with the same policy is expected to replace it.
func (t *Transactor) clearDestination(src, dest string) error {
	if !exists(t.fs, dest) {
		return nil
	}
	if err := t.fs.Remove(dest); err != nil {
		if IsBusy(err) {
			return newBusyError(KindDestinationBusy, dest, src, "existing output is in use", err)
		}
		return NewIOError("remove", dest, err)
	}
	return nil
}

// checkOutput verifies the transform left a scratch file behind
func (t *Transactor) checkOutput(scratch string, allowEmpty bool) error {
	info, err := t.fs.Stat(scratch)
	if err != nil {
		return &IOError{Operation: "stat", Path: scratch, Message: "scratch file was not created", Err: ErrNoOutput}
	}
	if !allowEmpty && info.Size() == 0 {
		return &IOError{Operation: "stat", Path: scratch, Message: "scratch file is empty", Err: ErrNoOutput}
	}
	return nil
}

// scratchPath returns a fresh hidden name in dir; batch scans skip it
func (t *Transactor) scratchPath(dir string) string {
	id := uuid.New()
	return joinPath(t.fs, dir, fmt.Sprintf(".%x.tmp", id[:]))
}

func (t *Transactor) removeScratch(scratch string) {
	if !exists(t.fs, scratch) {
		return
	}
	if err := t.fs.Remove(scratch); err != nil {
		t.logger.WithFields(logrus.Fields{"file": scratch, "error": err}).Warn("failed to remove scratch file")
	}
}

func (t *Transactor) warn(w *BusyError) {
	t.logger.WithFields(logrus.Fields{
		"file":      w.Path,
		"kind":      w.Kind.String(),
		"safe_path": w.SafePath,
	}).Warn(w.Message)
}

// checkRecoveredName rejects names that would escape the source directory
func checkRecoveredName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("unsafe original filename %q", name)
	}
	return nil
}
