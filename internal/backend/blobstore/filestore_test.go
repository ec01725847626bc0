package blobstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	return store
}

func TestGenerateName(t *testing.T) {
	now := time.Unix(1700000000, 999)
	if got := GenerateName(now, "face.png"); got != "1700000000_face.png" {
		t.Fatalf("GenerateName = %q, want %q", got, "1700000000_face.png")
	}
}

func TestFileStore_SaveReadDelete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("a.png", []byte("data")); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if !store.Exists("a.png") {
		t.Fatal("expected blob to exist after Save")
	}

	data, err := store.Read("a.png")
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if string(data) != "data" {
		t.Errorf("Read = %q, want %q", string(data), "data")
	}

	if err := store.Delete("a.png"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if store.Exists("a.png") {
		t.Fatal("expected blob to be gone after Delete")
	}

	// deleting twice is fine
	if err := store.Delete("a.png"); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
}

func TestFileStore_SaveNeverOverwrites(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("a.png", []byte("first")); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	err := store.Save("a.png", []byte("second"))
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	data, _ := store.Read("a.png")
	if string(data) != "first" {
		t.Errorf("expected original content to survive, got %q", string(data))
	}
}

func TestFileStore_RejectsInvalidNames(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"", ".", "..", "../escape.png", `dir\file.png`, "a/b.png"} {
		if err := store.Save(name, []byte("x")); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Save(%q): expected ErrInvalidName, got %v", name, err)
		}
		if store.Exists(name) {
			t.Errorf("Exists(%q) = true, want false", name)
		}
	}
}

func TestFileStore_OpenMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Open("missing.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_List(t *testing.T) {
	store := newTestStore(t)

	names, err := store.List()
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty store, got %v", names)
	}

	for _, name := range []string{"b.png", "a.png"} {
		if err := store.Save(name, []byte(name)); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}
	names, _ = store.List()
	if len(names) != 2 || names[0] != "a.png" || names[1] != "b.png" {
		t.Fatalf("List = %v, want [a.png b.png]", names)
	}
}
