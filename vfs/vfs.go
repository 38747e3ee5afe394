package vfs

import (
	"github.com/pkg/errors"
)

// ErrNotFound is returned by a BlobSource when the logical path does not exist.
var ErrNotFound = errors.New("vfs: not found")

// BlobSource returns the bytes of a logical path.
// Logical paths use forward slashes and are case-insensitive on game archives.
type BlobSource interface {
	Read(path string) ([]byte, error)
}

// Lister is implemented by sources that can enumerate their contents.
type Lister interface {
	List() ([]string, error)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
