package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	gethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Database is a generic interface for a key-value store.
// The ledger keeps its head pointer in the flat keyspace and its state in the
// trie database layered over the same backend.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	TrieDB() *triedb.Database
	Close() // A way to gracefully shut down the database connection.
}

// backend shares the trie database handling between the memory and LevelDB
// stores. The trie database is created lazily on first use.
type backend struct {
	kv ethdb.Database

	once   sync.Once
	trieDB *triedb.Database
}

func (b *backend) Put(key []byte, value []byte) error {
	return b.kv.Put(key, value)
}

func (b *backend) Get(key []byte) ([]byte, error) {
	ok, err := b.kv.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return b.kv.Get(key)
}

func (b *backend) Has(key []byte) (bool, error) {
	return b.kv.Has(key)
}

func (b *backend) TrieDB() *triedb.Database {
	b.once.Do(func() {
		b.trieDB = triedb.NewDatabase(b.kv, nil)
	})
	return b.trieDB
}

func (b *backend) close() error {
	if b.trieDB != nil {
		b.trieDB.Close()
	}
	return b.kv.Close()
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	backend
}

func NewMemDB() *MemDB {
	return &MemDB{backend: backend{kv: rawdb.NewMemoryDatabase()}}
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	_ = db.close()
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	backend
	path string
}

// LevelDBOptions tunes the LevelDB backend. Zero values fall back to the
// goleveldb defaults.
type LevelDBOptions struct {
	CacheMB       int
	OpenFiles     int
	WriteBufferMB int
}

// NewLevelDB creates or opens a LevelDB database at the specified path using
// default options.
func NewLevelDB(path string) (*LevelDB, error) {
	return NewLevelDBWithOptions(path, LevelDBOptions{})
}

// NewLevelDBWithOptions opens a LevelDB database at path with the provided
// cache and file handle limits.
func NewLevelDBWithOptions(path string, opts LevelDBOptions) (*LevelDB, error) {
	kv, err := gethleveldb.NewCustom(path, "padipay/db/", func(o *opt.Options) {
		if opts.CacheMB > 0 {
			o.BlockCacheCapacity = opts.CacheMB * opt.MiB
		}
		if opts.OpenFiles > 0 {
			o.OpenFilesCacheCapacity = opts.OpenFiles
		}
		if opts.WriteBufferMB > 0 {
			o.WriteBuffer = opts.WriteBufferMB * opt.MiB
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDB{backend: backend{kv: rawdb.NewDatabase(kv)}, path: path}, nil
}

// Path returns the directory backing the database.
func (ldb *LevelDB) Path() string {
	return ldb.path
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	_ = ldb.close()
}
