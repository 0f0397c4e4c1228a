package strongbox

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/absfs/absfs"
)

// FileSystem is the subset of absfs.FileSystem the engine and the file
// operator need. Any absfs filesystem satisfies it, which lets tests run
// against memfs.
type FileSystem interface {
	Open(name string) (absfs.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error)
	Stat(name string) (os.FileInfo, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Separator() uint8
}

// splitPath splits name into its directory and final element using the
// filesystem separator. The directory keeps no trailing separator except
// for the root.
func splitPath(fsys FileSystem, name string) (dir, base string) {
	sep := string([]byte{fsys.Separator()})
	i := strings.LastIndex(name, sep)
	if i < 0 {
		return ".", name
	}
	if i == 0 {
		return sep, name[1:]
	}
	return name[:i], name[i+1:]
}

// joinPath joins a directory and a name using the filesystem separator
func joinPath(fsys FileSystem, dir, name string) string {
	sep := string([]byte{fsys.Separator()})
	if dir == "" || dir == "." {
		return name
	}
	if strings.HasSuffix(dir, sep) {
		return dir + name
	}
	return dir + sep + name
}

// exists reports whether name exists. Errors other than not-exist count as
// existing so callers never overwrite something they could not inspect.
func exists(fsys FileSystem, name string) bool {
	_, err := fsys.Stat(name)
	return err == nil || !isNotExist(err)
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, fs.ErrNotExist)
}

// CollectFiles expands path into the files to process. A file is returned
// as-is; a directory expands to every file in its subtree whose name does
// not start with a dot, sorted by path. Hidden directories are still walked.
func CollectFiles(fsys FileSystem, path string) ([]string, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		if isNotExist(err) {
			return nil, &IOError{Operation: "stat", Path: path, Message: "path does not exist", Err: ErrSourceNotFound}
		}
		return nil, NewIOError("stat", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	if err := walkDir(fsys, path, &files); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func walkDir(fsys FileSystem, dir string, files *[]string) error {
	f, err := fsys.Open(dir)
	if err != nil {
		return NewIOError("open", dir, err)
	}
	infos, err := f.Readdir(-1)
	f.Close()
	if err != nil {
		return NewIOError("readdir", dir, err)
	}

	for _, info := range infos {
		name := info.Name()
		if name == "." || name == ".." {
			continue
		}
		full := joinPath(fsys, dir, name)
		if info.IsDir() {
			if err := walkDir(fsys, full, files); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		*files = append(*files, full)
	}
	return nil
}
