package strongbox

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

func newTestTransactor(t *testing.T, fsys FileSystem) (*Transactor, *spyTransformer) {
	t.Helper()
	spy := &spyTransformer{Transformer: newTestEngine(t, fsys)}
	return NewTransactor(fsys, spy, nil), spy
}

func TestTransactor_EncryptDecrypt(t *testing.T) {
	fsys := newMemFS(t)
	tx, spy := newTestTransactor(t, fsys)
	plaintext := []byte("meeting notes")
	writeFile(t, fsys, "/notes.txt", plaintext)

	res, err := tx.EncryptFile("/notes.txt", []byte("pw"), DefaultSettings())
	if err != nil {
		t.Fatalf("EncryptFile failed: %v", err)
	}
	want := "/" + BuildEncryptedName("notes.txt", "pw", FormatFullEncrypt, "")
	if res.Path != want || res.Source != "/notes.txt" || res.Warning != nil {
		t.Errorf("Result = %+v, want Path %s", res, want)
	}
	assertMissing(t, fsys, "/notes.txt")
	assertMissing(t, fsys, spy.last())

	res, err = tx.DecryptFile(want, []byte("pw"))
	if err != nil {
		t.Fatalf("DecryptFile failed: %v", err)
	}
	if res.Path != "/notes.txt" || res.OriginalName != "notes.txt" {
		t.Errorf("Result = %+v", res)
	}
	assertMissing(t, fsys, want)
	assertMissing(t, fsys, spy.last())
	if !bytes.Equal(readFile(t, fsys, "/notes.txt"), plaintext) {
		t.Error("round trip changed the content")
	}
}

func TestTransactor_ScratchName(t *testing.T) {
	fsys := newMemFS(t)
	tx, spy := newTestTransactor(t, fsys)
	writeFile(t, fsys, "/a.txt", []byte("x"))

	if _, err := tx.EncryptFile("/a.txt", []byte("pw"), DefaultSettings()); err != nil {
		t.Fatal(err)
	}
	scratch := spy.last()
	dir, name := splitPath(fsys, scratch)
	if dir != "/" || len(name) != len(".")+32+len(".tmp") || name[0] != '.' || name[len(name)-4:] != ".tmp" {
		t.Errorf("scratch path %q should be a hidden .<uuid>.tmp in the source directory", scratch)
	}
}

func TestTransactor_NewExtension(t *testing.T) {
	fsys := newMemFS(t)
	tx, _ := newTestTransactor(t, fsys)
	writeFile(t, fsys, "/photo.jpg", []byte("jpeg"))

	res, err := tx.EncryptFile("/photo.jpg", []byte("pw"), Settings{Format: FormatNewExtension, Extension: "locked"})
	if err != nil {
		t.Fatal(err)
	}
	want := "/" + BuildEncryptedName("photo.jpg", "pw", FormatFullEncrypt, "") + ".locked"
	if res.Path != want {
		t.Errorf("Path = %q, want %q", res.Path, want)
	}
}

func TestTransactor_KeepOriginal(t *testing.T) {
	fsys := newMemFS(t)
	tx, _ := newTestTransactor(t, fsys)
	plaintext := []byte("keep my name")
	writeFile(t, fsys, "/report.pdf", plaintext)

	res, err := tx.EncryptFile("/report.pdf", []byte("pw"), Settings{Format: FormatKeepOriginal})
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/report.pdf" {
		t.Errorf("Path = %q, want /report.pdf", res.Path)
	}
	assertMissing(t, fsys, "/report.pdf.strongbox")
	if bytes.Equal(readFile(t, fsys, "/report.pdf"), plaintext) {
		t.Fatal("file was not encrypted")
	}

	// Same-name decrypt goes through the .decrypted intermediate
	res, err = tx.DecryptFile("/report.pdf", []byte("pw"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/report.pdf" {
		t.Errorf("Path = %q, want /report.pdf", res.Path)
	}
	assertMissing(t, fsys, "/report.pdf.decrypted")
	if !bytes.Equal(readFile(t, fsys, "/report.pdf"), plaintext) {
		t.Error("content mismatch after same-name decrypt")
	}
}

func TestTransactor_SameNameIgnoresCase(t *testing.T) {
	fsys := newMemFS(t)
	e := newTestEngine(t, fsys)
	tx := NewTransactor(fsys, e, nil)

	writeFile(t, fsys, "/src", []byte("case"))
	if err := e.Encrypt("/src", "/README.MD", []byte("pw"), "readme.md"); err != nil {
		t.Fatal(err)
	}

	res, err := tx.DecryptFile("/README.MD", []byte("pw"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/readme.md" {
		t.Errorf("Path = %q, want /readme.md", res.Path)
	}
	assertMissing(t, fsys, "/README.MD")
	assertMissing(t, fsys, "/README.MD.decrypted")
}

func TestTransactor_CollisionResolution(t *testing.T) {
	fsys := newMemFS(t)
	e := newTestEngine(t, fsys)
	tx := NewTransactor(fsys, e, nil)

	writeFile(t, fsys, "/src", []byte("third copy"))
	if err := e.Encrypt("/src", "/box.bin", []byte("pw"), "a.txt"); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fsys, "/a.txt", []byte("first"))
	writeFile(t, fsys, "/a (1).txt", []byte("second"))

	res, err := tx.DecryptFile("/box.bin", []byte("pw"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/a (2).txt" {
		t.Errorf("Path = %q, want /a (2).txt", res.Path)
	}
	if string(readFile(t, fsys, "/a.txt")) != "first" || string(readFile(t, fsys, "/a (1).txt")) != "second" {
		t.Error("existing files were modified")
	}
	if string(readFile(t, fsys, "/a (2).txt")) != "third copy" {
		t.Error("decrypted content mismatch")
	}
}

func TestTransactor_ReencryptReplacesOutput(t *testing.T) {
	fsys := newMemFS(t)
	tx, _ := newTestTransactor(t, fsys)

	writeFile(t, fsys, "/x.txt", []byte("v1"))
	first, err := tx.EncryptFile("/x.txt", []byte("pw"), DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, fsys, "/x.txt", []byte("v2"))
	second, err := tx.EncryptFile("/x.txt", []byte("pw"), DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	if first.Path != second.Path {
		t.Fatalf("same name and password gave %q and %q", first.Path, second.Path)
	}

	if _, err := tx.DecryptFile(second.Path, []byte("pw")); err != nil {
		t.Fatal(err)
	}
	if string(readFile(t, fsys, "/x.txt")) != "v2" {
		t.Error("second encryption did not replace the first")
	}
}

func TestTransactor_SourceBusy(t *testing.T) {
	base := newMemFS(t)
	fsys := newFaultFS(base)
	tx, _ := newTestTransactor(t, fsys)
	writeFile(t, fsys, "/locked.doc", []byte("in use"))
	fsys.removeErr["/locked.doc"] = busyErr("remove", "/locked.doc")

	res, err := tx.EncryptFile("/locked.doc", []byte("pw"), DefaultSettings())
	if err != nil {
		t.Fatalf("busy source should be a warning, got %v", err)
	}
	if res.Warning == nil || res.Warning.Kind != KindSourceBusy {
		t.Fatalf("Warning = %+v, want source busy", res.Warning)
	}
	if res.Warning.SafePath != res.Path {
		t.Errorf("SafePath = %q, want %q", res.Warning.SafePath, res.Path)
	}
	assertExists(t, fsys, res.Path)
	assertExists(t, fsys, "/locked.doc")
}

func TestTransactor_KeepOriginalSourceBusy(t *testing.T) {
	fsys := newFaultFS(newMemFS(t))
	tx, _ := newTestTransactor(t, fsys)
	plaintext := []byte("open in editor")
	writeFile(t, fsys, "/draft.txt", plaintext)
	fsys.removeErr["/draft.txt"] = busyErr("remove", "/draft.txt")

	res, err := tx.EncryptFile("/draft.txt", []byte("pw"), Settings{Format: FormatKeepOriginal})
	if err != nil {
		t.Fatalf("got %v, want warning", err)
	}
	if res.Warning == nil || res.Warning.Kind != KindSourceBusy || res.Warning.SafePath != "/draft.txt.strongbox" {
		t.Fatalf("Warning = %+v", res.Warning)
	}
	if !bytes.Equal(readFile(t, fsys, "/draft.txt"), plaintext) {
		t.Error("busy source should be untouched")
	}
	if name, ok := tx.transformer.ProbeOriginalName("/draft.txt.strongbox", []byte("pw")); !ok || name != "draft.txt" {
		t.Errorf("intermediate is not a valid container: %q %v", name, ok)
	}
}

func TestTransactor_FinalRenameBusy(t *testing.T) {
	fsys := newFaultFS(newMemFS(t))
	tx, _ := newTestTransactor(t, fsys)
	writeFile(t, fsys, "/db.sqlite", []byte("pages"))
	fsys.renameErr["/db.sqlite"] = busyErr("rename", "/db.sqlite")

	res, err := tx.EncryptFile("/db.sqlite", []byte("pw"), Settings{Format: FormatKeepOriginal})
	if err != nil {
		t.Fatalf("got %v, want warning", err)
	}
	if res.Warning == nil || res.Warning.Kind != KindDestinationBusy {
		t.Fatalf("Warning = %+v, want destination busy", res.Warning)
	}
	if res.Path != "/db.sqlite.strongbox" {
		t.Errorf("Path = %q, want the intermediate", res.Path)
	}
	assertExists(t, fsys, "/db.sqlite.strongbox")
	assertMissing(t, fsys, "/db.sqlite")
}

func TestTransactor_DestinationInUse(t *testing.T) {
	fsys := newFaultFS(newMemFS(t))
	tx, spy := newTestTransactor(t, fsys)
	writeFile(t, fsys, "/y.txt", []byte("y"))

	dest := "/" + BuildEncryptedName("y.txt", "pw", FormatFullEncrypt, "")
	writeFile(t, fsys, dest, []byte("old container"))
	fsys.removeErr[dest] = busyErr("remove", dest)

	_, err := tx.EncryptFile("/y.txt", []byte("pw"), DefaultSettings())
	if KindOf(err) != KindDestinationBusy {
		t.Fatalf("got %v, want destination busy failure", err)
	}
	assertExists(t, fsys, "/y.txt")
	assertMissing(t, fsys, spy.last())
	if string(readFile(t, fsys, dest)) != "old container" {
		t.Error("busy destination was modified")
	}
}

func TestTransactor_HardFailureAfterCommit(t *testing.T) {
	fsys := newFaultFS(newMemFS(t))
	tx, _ := newTestTransactor(t, fsys)
	writeFile(t, fsys, "/z.txt", []byte("z"))
	fsys.removeErr["/z.txt"] = errors.New("permission denied")

	_, err := tx.EncryptFile("/z.txt", []byte("pw"), DefaultSettings())
	if err == nil || IsBusyError(err) {
		t.Fatalf("got %v, want a hard failure", err)
	}
	dest := "/" + BuildEncryptedName("z.txt", "pw", FormatFullEncrypt, "")
	assertExists(t, fsys, dest)
	assertExists(t, fsys, "/z.txt")
}

func TestTransactor_NoOutput(t *testing.T) {
	fsys := newMemFS(t)
	spy := &spyTransformer{Transformer: &stubTransformer{fs: fsys}}
	tx := NewTransactor(fsys, spy, nil)
	writeFile(t, fsys, "/a.txt", []byte("data"))

	_, err := tx.EncryptFile("/a.txt", []byte("pw"), DefaultSettings())
	if !errors.Is(err, ErrNoOutput) || KindOf(err) != KindNoOutput {
		t.Fatalf("got %v, want ErrNoOutput", err)
	}
	assertMissing(t, fsys, spy.last())
	assertExists(t, fsys, "/a.txt")
}

func TestTransactor_EmptyDecryptedFile(t *testing.T) {
	fsys := newMemFS(t)
	tx, _ := newTestTransactor(t, fsys)
	writeFile(t, fsys, "/empty.txt", nil)

	res, err := tx.EncryptFile("/empty.txt", []byte("pw"), DefaultSettings())
	if err != nil {
		t.Fatalf("EncryptFile of an empty file failed: %v", err)
	}
	if _, err := tx.DecryptFile(res.Path, []byte("pw")); err != nil {
		t.Fatalf("DecryptFile of an empty plaintext failed: %v", err)
	}
	if len(readFile(t, fsys, "/empty.txt")) != 0 {
		t.Error("expected an empty file")
	}
}

func TestTransactor_WrongPassword(t *testing.T) {
	fsys := newMemFS(t)
	tx, spy := newTestTransactor(t, fsys)
	writeFile(t, fsys, "/w.txt", []byte("w"))

	res, err := tx.EncryptFile("/w.txt", []byte("right"), DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	before := readFile(t, fsys, res.Path)

	_, err = tx.DecryptFile(res.Path, []byte("wrong"))
	if KindOf(err) != KindAuthFailure {
		t.Fatalf("got %v, want auth failure", err)
	}
	assertMissing(t, fsys, spy.last())
	assertMissing(t, fsys, "/w.txt")
	if !bytes.Equal(readFile(t, fsys, res.Path), before) {
		t.Error("container changed after a failed decrypt")
	}
}

func TestTransactor_TamperedBody(t *testing.T) {
	fsys := newMemFS(t)
	tx, spy := newTestTransactor(t, fsys)
	writeFile(t, fsys, "/t.txt", bytes.Repeat([]byte("t"), 4096))

	res, err := tx.EncryptFile("/t.txt", []byte("pw"), DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	data := readFile(t, fsys, res.Path)
	data[len(data)-100] ^= 0xff
	writeFile(t, fsys, res.Path, data)

	_, err = tx.DecryptFile(res.Path, []byte("pw"))
	if KindOf(err) != KindAuthFailure {
		t.Fatalf("got %v, want auth failure", err)
	}
	assertMissing(t, fsys, spy.last())
	assertMissing(t, fsys, "/t.txt")
	assertExists(t, fsys, res.Path)
}

func TestTransactor_IntermediateExists(t *testing.T) {
	fsys := newMemFS(t)
	tx, spy := newTestTransactor(t, fsys)
	plaintext := []byte("original")
	unrelated := []byte("unrelated user data")
	writeFile(t, fsys, "/a.txt", plaintext)
	writeFile(t, fsys, "/a.txt.strongbox", unrelated)

	_, err := tx.EncryptFile("/a.txt", []byte("pw"), Settings{Format: FormatKeepOriginal})
	if !IsIOError(err) || !errors.Is(err, os.ErrExist) {
		t.Fatalf("got %v, want IOError wrapping ErrExist", err)
	}
	if !bytes.Equal(readFile(t, fsys, "/a.txt"), plaintext) {
		t.Error("source was modified")
	}
	if !bytes.Equal(readFile(t, fsys, "/a.txt.strongbox"), unrelated) {
		t.Error("existing .strongbox file was overwritten")
	}
	assertMissing(t, fsys, spy.last())

	// Same check on the decrypt side
	if err := fsys.Remove("/a.txt.strongbox"); err != nil {
		t.Fatal(err)
	}
	if _, err := tx.EncryptFile("/a.txt", []byte("pw"), Settings{Format: FormatKeepOriginal}); err != nil {
		t.Fatal(err)
	}
	container := readFile(t, fsys, "/a.txt")
	writeFile(t, fsys, "/a.txt.decrypted", unrelated)

	_, err = tx.DecryptFile("/a.txt", []byte("pw"))
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("got %v, want ErrExist", err)
	}
	if !bytes.Equal(readFile(t, fsys, "/a.txt"), container) {
		t.Error("encrypted source was modified")
	}
	if !bytes.Equal(readFile(t, fsys, "/a.txt.decrypted"), unrelated) {
		t.Error("existing .decrypted file was overwritten")
	}
	assertMissing(t, fsys, spy.last())
}

func TestTransactor_SameNameCaseVariantExists(t *testing.T) {
	fsys := newMemFS(t)
	e := newTestEngine(t, fsys)
	tx := NewTransactor(fsys, e, nil)

	writeFile(t, fsys, "/src", []byte("case"))
	if err := e.Encrypt("/src", "/README.MD", []byte("pw"), "readme.md"); err != nil {
		t.Fatal(err)
	}
	writeFile(t, fsys, "/readme.md", []byte("other"))

	res, err := tx.DecryptFile("/README.MD", []byte("pw"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Path != "/readme (1).md" {
		t.Errorf("Path = %q, want /readme (1).md", res.Path)
	}
	if got := readFile(t, fsys, "/readme.md"); string(got) != "other" {
		t.Errorf("/readme.md = %q, want it untouched", got)
	}
	if got := readFile(t, fsys, "/readme (1).md"); string(got) != "case" {
		t.Errorf("decrypted content = %q, want %q", got, "case")
	}
	assertMissing(t, fsys, "/README.MD")
}

func TestTransactor_UnsafeRecoveredName(t *testing.T) {
	fsys := newMemFS(t)
	spy := &spyTransformer{Transformer: &stubTransformer{fs: fsys, output: []byte("x"), name: "../escape"}}
	tx := NewTransactor(fsys, spy, nil)
	writeFile(t, fsys, "/box", []byte("container"))

	_, err := tx.DecryptFile("/box", []byte("pw"))
	if KindOf(err) != KindMalformedContainer {
		t.Fatalf("got %v, want malformed container", err)
	}
	assertMissing(t, fsys, spy.last())
	assertExists(t, fsys, "/box")
}

func TestTransactor_InvalidInput(t *testing.T) {
	fsys := newMemFS(t)
	tx, _ := newTestTransactor(t, fsys)

	if _, err := tx.EncryptFile("/a", nil, DefaultSettings()); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("encrypt empty password: got %v", err)
	}
	if _, err := tx.DecryptFile("/a", nil); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("decrypt empty password: got %v", err)
	}
	if _, err := tx.EncryptFile("/missing", []byte("pw"), DefaultSettings()); KindOf(err) != KindSourceNotFound {
		t.Errorf("missing source: got %v", err)
	}
}
