package vfs

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// MemorySource is an in-memory BlobSource keyed by lowercase logical path.
type MemorySource struct {
	files map[string][]byte
}

func NewMemorySource() *MemorySource {
	return &MemorySource{files: make(map[string][]byte)}
}

func normalizePath(p string) string {
	return strings.ToLower(strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/"))
}

func (ms *MemorySource) Add(path string, data []byte) {
	ms.files[normalizePath(path)] = data
}

func (ms *MemorySource) Read(path string) ([]byte, error) {
	if data, ok := ms.files[normalizePath(path)]; ok {
		return data, nil
	}
	return nil, errors.Wrapf(ErrNotFound, "%q", path)
}

func (ms *MemorySource) List() ([]string, error) {
	result := make([]string, 0, len(ms.files))
	for name := range ms.files {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}
