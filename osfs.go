package strongbox

import (
	"os"

	"github.com/absfs/absfs"
)

// OSFS is a FileSystem over the host operating system using native paths
type OSFS struct{}

// NewOSFS returns the host filesystem
func NewOSFS() *OSFS {
	return &OSFS{}
}

// Open opens a file for reading
func (OSFS) Open(name string) (absfs.File, error) {
	return os.Open(name)
}

// OpenFile opens a file with the specified flags and permissions
func (OSFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	return os.OpenFile(name, flag, perm)
}

// Stat returns file information
func (OSFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// Remove removes a file or empty directory
func (OSFS) Remove(name string) error {
	return os.Remove(name)
}

// Rename renames (moves) a file
func (OSFS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Separator returns the host path separator
func (OSFS) Separator() uint8 {
	return os.PathSeparator
}
