package strongbox

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

// DefaultExtension is appended by FormatNewExtension when none is configured
const DefaultExtension = ".data"

// BuildEncryptedName returns the on-disk name for an encrypted file. It is a
// pure function: the same inputs always give the same name, so re-encrypting
// a file lands on the same name even though the ciphertext differs.
func BuildEncryptedName(originalName, password string, format FilenameFormat, customExtension string) string {
	switch format {
	case FormatKeepOriginal:
		return originalName
	case FormatNewExtension:
		return hashedName(originalName, password) + customExtension
	default:
		// Unknown formats hide the name like FormatFullEncrypt.
		return hashedName(originalName, password)
	}
}

// hashedName is lowercase hex SHA-256 of name followed by password
func hashedName(name, password string) string {
	sum := sha256.Sum256([]byte(name + password))
	return hex.EncodeToString(sum[:])
}

// NormalizeExtension trims ext, falls back to DefaultExtension when blank and
// makes sure the result starts with a dot.
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// numberedName returns "base (n).ext" for name. The extension is the part
// from the final dot, so ".bashrc" becomes " (1).bashrc".
func numberedName(name string, n int) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s (%d)%s", base, n, ext)
}

// freeName returns the first of name, "name (1).ext", "name (2).ext", ...
// that does not exist in dir.
func freeName(fsys FileSystem, dir, name string) string {
	candidate := joinPath(fsys, dir, name)
	for n := 1; exists(fsys, candidate); n++ {
		candidate = joinPath(fsys, dir, numberedName(name, n))
	}
	return candidate
}
