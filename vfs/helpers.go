package vfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	cacheDirOnce sync.Once
	cacheDir     string
	cacheDirErr  error
)

// CacheDir returns the per-process scratch directory, creating it on first use.
func CacheDir() (string, error) {
	cacheDirOnce.Do(func() {
		cacheDir = filepath.Join(os.TempDir(), "wow_model_browser-"+uuid.NewString())
		cacheDirErr = os.MkdirAll(cacheDir, 0777)
	})
	return cacheDir, cacheDirErr
}

type stagedFile struct {
	target string
	temp   string
}

// Batch stages output files next to their targets and renames them together on Commit.
// Nothing is visible at the target paths until Commit succeeds.
type Batch struct {
	staged []stagedFile
}

func (b *Batch) Stage(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrapf(err, "create directory %q", dir)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(temp, data, 0666); err != nil {
		os.Remove(temp)
		return errors.Wrapf(err, "write %q", temp)
	}
	b.staged = append(b.staged, stagedFile{target: path, temp: temp})
	return nil
}

func (b *Batch) Commit() error {
	for i, sf := range b.staged {
		if err := os.Rename(sf.temp, sf.target); err != nil {
			b.staged = b.staged[i:]
			b.Discard()
			return errors.Wrapf(err, "rename %q", sf.target)
		}
	}
	b.staged = nil
	return nil
}

// Discard removes every staged temp file.
func (b *Batch) Discard() {
	for _, sf := range b.staged {
		os.Remove(sf.temp)
	}
	b.staged = nil
}

// Paths returns the target paths staged so far.
func (b *Batch) Paths() []string {
	result := make([]string, len(b.staged))
	for i, sf := range b.staged {
		result[i] = sf.target
	}
	return result
}

func WriteFileAtomic(path string, data []byte) error {
	var b Batch
	if err := b.Stage(path, data); err != nil {
		return err
	}
	return b.Commit()
}
