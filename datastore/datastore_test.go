package datastore

import (
	"os"
	"path/filepath"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestPutFlushReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")

	ds, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if ds.Dirty() {
		t.Fatal("fresh store must not be dirty")
	}

	if err := ds.Put("a", record{Name: "x", Count: 2}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !ds.Dirty() {
		t.Fatal("put must mark the store dirty")
	}
	if err := ds.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if ds.Dirty() {
		t.Fatal("flush must clear the dirty flag")
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	var got record
	ok, err := reloaded.Get("a", &got)
	if err != nil || !ok {
		t.Fatalf("get after reload: ok=%v err=%v", ok, err)
	}
	if got.Name != "x" || got.Count != 2 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestFlushSkipsCleanStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	ds, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	before, _ := os.Stat(path)
	if err := ds.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	after, _ := os.Stat(path)
	if !before.ModTime().Equal(after.ModTime()) {
		t.Fatal("clean flush must not rewrite the file")
	}
}

func TestKeysAndDelete(t *testing.T) {
	ds, err := New(filepath.Join(t.TempDir(), "save.json"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_ = ds.Put("deny:2", []string{"u"})
	_ = ds.Put("deny:1", []string{"u"})
	_ = ds.Put("nick:1", "n")

	keys := ds.Keys("deny:")
	if len(keys) != 2 || keys[0] != "deny:1" || keys[1] != "deny:2" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	ds.Delete("deny:1")
	var v []string
	if ok, _ := ds.Get("deny:1", &v); ok {
		t.Fatal("deleted key still present")
	}
}

func TestCloseRejectsWrites(t *testing.T) {
	ds, err := New(filepath.Join(t.TempDir(), "save.json"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := ds.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ds.Put("a", 1); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err == nil {
		t.Fatal("expected error for malformed file")
	}
}
