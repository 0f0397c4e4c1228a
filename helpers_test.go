package strongbox

import (
	"io"
	"os"
	"sync"
	"testing"

	"github.com/absfs/memfs"
)

func newMemFS(t testing.TB) FileSystem {
	t.Helper()
	fs, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("failed to create memfs: %v", err)
	}
	return fs
}

func newTestEngine(t testing.TB, fsys FileSystem) *Engine {
	t.Helper()
	e, err := New(&Config{FS: fsys, KDF: fastKDF})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func writeFile(t testing.TB, fsys FileSystem, name string, data []byte) {
	t.Helper()
	f, err := fsys.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		t.Fatalf("write %s: %v", name, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", name, err)
	}
}

func readFile(t testing.TB, fsys FileSystem, name string) []byte {
	t.Helper()
	f, err := fsys.Open(name)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return data
}

func assertExists(t testing.TB, fsys FileSystem, name string) {
	t.Helper()
	if _, err := fsys.Stat(name); err != nil {
		t.Errorf("%s should exist: %v", name, err)
	}
}

func assertMissing(t testing.TB, fsys FileSystem, name string) {
	t.Helper()
	if _, err := fsys.Stat(name); !isNotExist(err) {
		t.Errorf("%s should not exist (stat err: %v)", name, err)
	}
}

// busyErr looks like a lock error from the OS
func busyErr(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: ErrFileBusy}
}

// faultFS injects errors into Remove and Rename. Rename faults are keyed by
// the destination path.
type faultFS struct {
	FileSystem
	removeErr map[string]error
	renameErr map[string]error
}

func newFaultFS(base FileSystem) *faultFS {
	return &faultFS{
		FileSystem: base,
		removeErr:  make(map[string]error),
		renameErr:  make(map[string]error),
	}
}

func (f *faultFS) Remove(name string) error {
	if err, ok := f.removeErr[name]; ok {
		return err
	}
	return f.FileSystem.Remove(name)
}

func (f *faultFS) Rename(oldpath, newpath string) error {
	if err, ok := f.renameErr[newpath]; ok {
		return err
	}
	return f.FileSystem.Rename(oldpath, newpath)
}

// spyTransformer records the scratch paths handed to the wrapped Transformer
type spyTransformer struct {
	Transformer
	mu   sync.Mutex
	dsts []string
}

func (s *spyTransformer) Encrypt(src, dst string, password []byte, originalName string) error {
	s.record(dst)
	return s.Transformer.Encrypt(src, dst, password, originalName)
}

func (s *spyTransformer) Decrypt(src, dst string, password []byte) (string, error) {
	s.record(dst)
	return s.Transformer.Decrypt(src, dst, password)
}

func (s *spyTransformer) record(dst string) {
	s.mu.Lock()
	s.dsts = append(s.dsts, dst)
	s.mu.Unlock()
}

func (s *spyTransformer) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dsts) == 0 {
		return ""
	}
	return s.dsts[len(s.dsts)-1]
}

// stubTransformer writes fixed output and reports a fixed name
type stubTransformer struct {
	fs     FileSystem
	output []byte
	name   string
}

func (s *stubTransformer) Encrypt(src, dst string, password []byte, originalName string) error {
	return s.write(dst)
}

func (s *stubTransformer) Decrypt(src, dst string, password []byte) (string, error) {
	return s.name, s.write(dst)
}

func (s *stubTransformer) ProbeOriginalName(src string, password []byte) (string, bool) {
	return s.name, s.name != ""
}

func (s *stubTransformer) write(dst string) error {
	f, err := s.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(s.output); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
