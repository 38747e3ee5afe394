package vfs

import (
	"io/fs"
	"os"
	path_ "path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DirectoryDriver serves logical paths from a directory on disk.
type DirectoryDriver struct {
	path string
}

func NewDirectoryDriver(path string) *DirectoryDriver {
	return &DirectoryDriver{path: path}
}

func (dd *DirectoryDriver) Path() string {
	return dd.path
}

func (dd *DirectoryDriver) fullPath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return filepath.Join(dd.path, filepath.FromSlash(path_.Clean("/"+name)))
}

func (dd *DirectoryDriver) Read(name string) ([]byte, error) {
	full := dd.fullPath(name)
	data, err := os.ReadFile(full)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "read %q", name)
	}

	// game paths are case-insensitive, files extracted from archives are not always
	if alt, ok := dd.lookupFold(name); ok {
		if data, err := os.ReadFile(alt); err == nil {
			return data, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "%q", name)
}

func (dd *DirectoryDriver) lookupFold(name string) (string, bool) {
	dir := dd.path
	parts := strings.Split(strings.Trim(strings.ReplaceAll(name, "\\", "/"), "/"), "/")
	for _, part := range parts {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", false
		}
		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name(), part) {
				dir = filepath.Join(dir, e.Name())
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	return dir, true
}

// List returns all model files under the directory as logical paths.
func (dd *DirectoryDriver) List() ([]string, error) {
	result := make([]string, 0, 32)
	err := filepath.WalkDir(dd.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".m2", ".wmo", ".skin", ".anim", ".blp", ".png", ".tga", ".bmp":
		default:
			return nil
		}
		rel, err := filepath.Rel(dd.path, p)
		if err != nil {
			return err
		}
		result = append(result, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "Error getting directory '%s' info", dd.path)
	}
	sort.Strings(result)
	return result, nil
}
