// Package shm manages named shared memory objects.
//
// Objects follow shm_open(3) naming: an optional leading slash followed by a
// name without further slashes. On Linux they live in /dev/shm, which is what
// shm_open uses; elsewhere the temporary directory stands in.
package shm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	shmfs "github.com/hupe1980/shmarena/internal/fs"
)

const maxNameLen = 255

var (
	// ErrInvalidName is returned for names that are empty, too long or contain '/'.
	ErrInvalidName = errors.New("shm: invalid name")
	// ErrExists is returned by Create when the object already exists.
	ErrExists = errors.New("shm: object already exists")
	// ErrNotFound is returned when the object does not exist.
	ErrNotFound = errors.New("shm: object not found")
)

// Dir returns the directory holding shared memory objects.
func Dir() string {
	if st, err := os.Stat("/dev/shm"); err == nil && st.IsDir() {
		return "/dev/shm"
	}
	return os.TempDir()
}

// Namespace is a directory of shared memory objects.
type Namespace struct {
	dir string
	fs  shmfs.FileSystem
}

// NewNamespace returns a namespace rooted at dir using fsys.
// An empty dir selects Dir(), a nil fsys selects fs.Default.
func NewNamespace(dir string, fsys shmfs.FileSystem) *Namespace {
	if dir == "" {
		dir = Dir()
	}
	if fsys == nil {
		fsys = shmfs.Default
	}
	return &Namespace{dir: dir, fs: fsys}
}

var defaultNamespace = NewNamespace("", nil)

// Path resolves name to its backing file path.
func (ns *Namespace) Path(name string) (string, error) {
	n := strings.TrimPrefix(name, "/")
	if n == "" || len(n) > maxNameLen || strings.ContainsRune(n, '/') || n == "." || n == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(ns.dir, n), nil
}

// Create exclusively creates the object and sizes it to size bytes.
// On failure nothing is left behind in the namespace.
func (ns *Namespace) Create(name string, size int64) (shmfs.File, error) {
	path, err := ns.Path(name)
	if err != nil {
		return nil, err
	}

	f, err := ns.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrExists, name)
		}
		return nil, fmt.Errorf("create shared memory object: %w", err)
	}

	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		_ = ns.fs.Remove(path)
		return nil, fmt.Errorf("truncate shared memory object: %w", err)
	}
	return f, nil
}

// Open opens an existing object read/write and returns it with its size.
func (ns *Namespace) Open(name string) (shmfs.File, int64, error) {
	path, err := ns.Path(name)
	if err != nil {
		return nil, 0, err
	}

	f, err := ns.fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, 0, fmt.Errorf("open shared memory object: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat shared memory object: %w", err)
	}
	return f, st.Size(), nil
}

// Unlink removes the object from the namespace. Existing mappings stay valid.
func (ns *Namespace) Unlink(name string) error {
	path, err := ns.Path(name)
	if err != nil {
		return err
	}
	if err := ns.fs.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	return nil
}

// Exists reports whether the object is present in the namespace.
func (ns *Namespace) Exists(name string) bool {
	path, err := ns.Path(name)
	if err != nil {
		return false
	}
	_, err = ns.fs.Stat(path)
	return err == nil
}

// Path resolves name in the default namespace.
func Path(name string) (string, error) { return defaultNamespace.Path(name) }

// Create creates name in the default namespace.
func Create(name string, size int64) (shmfs.File, error) { return defaultNamespace.Create(name, size) }

// Open opens name in the default namespace.
func Open(name string) (shmfs.File, int64, error) { return defaultNamespace.Open(name) }

// Unlink removes name from the default namespace.
func Unlink(name string) error { return defaultNamespace.Unlink(name) }

// Exists reports whether name is present in the default namespace.
func Exists(name string) bool { return defaultNamespace.Exists(name) }
