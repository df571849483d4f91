package storage

import (
	"errors"
	"testing"
)

func TestMemDBGetMissingKey(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	if _, err := db.Get([]byte("absent")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("unexpected value %q", got)
	}
	if db.TrieDB() != db.TrieDB() {
		t.Fatalf("trie database should be created once")
	}
}

func TestLevelDBReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := NewLevelDBWithOptions(dir, LevelDBOptions{CacheMB: 8, OpenFiles: 16})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Put([]byte("head"), []byte{7}); err != nil {
		t.Fatalf("put: %v", err)
	}
	db.Close()

	reopened, err := NewLevelDB(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	ok, err := reopened.Has([]byte("head"))
	if err != nil || !ok {
		t.Fatalf("expected head key to persist: ok=%v err=%v", ok, err)
	}
}
