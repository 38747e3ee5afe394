package vfs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemorySourceNotFound(t *testing.T) {
	ms := NewMemorySource()
	ms.Add("World\\Test.M2", []byte{1})
	if data, err := ms.Read("world/test.m2"); err != nil || len(data) != 1 {
		t.Fatalf("Read: %v %v", data, err)
	}
	if _, err := ms.Read("world/missing.m2"); !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDirectoryDriverCaseFold(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "World"), 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "World", "Box.m2"), []byte("MD20"), 0666); err != nil {
		t.Fatal(err)
	}
	dd := NewDirectoryDriver(dir)
	if data, err := dd.Read("world\\box.M2"); err != nil || string(data) != "MD20" {
		t.Errorf("Read = %q, %v", data, err)
	}
	if _, err := dd.Read("world/none.m2"); !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	list, err := dd.List()
	if err != nil || len(list) != 1 || list[0] != "World/Box.m2" {
		t.Errorf("List = %v, %v", list, err)
	}
}

func TestBatchDiscardLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.m2")
	var b Batch
	if err := b.Stage(target, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("target visible before commit")
	}
	b.Discard()
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}

	if err := WriteFileAtomic(target, []byte{4}); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(target); len(data) != 1 || data[0] != 4 {
		t.Errorf("committed data = %v", data)
	}
}
