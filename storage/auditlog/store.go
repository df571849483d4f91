// Package auditlog keeps an append-only record of every committed ledger
// event in a BoltDB file.
package auditlog

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"

	"padipay/core/types"
)

var (
	bucketEvents = []byte("events")
	bucketMeta   = []byte("meta")

	keyLastHeight = []byte("last-height")

	// ErrHeightRegression is returned when events are appended for a height
	// below the last recorded one.
	ErrHeightRegression = errors.New("auditlog: height must not decrease")
)

// Record is one stored event.
type Record struct {
	Seq        uint64            `json:"seq"`
	Height     uint64            `json:"height"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	RecordedAt time.Time         `json:"recordedAt"`
}

// Store persists committed events keyed by a monotonically increasing
// sequence number.
type Store struct {
	db    *bolt.DB
	nowFn func() time.Time
}

// Open initialises (and migrates) the BoltDB-backed store.
func Open(path string, options *bolt.Options) (*Store, error) {
	if options == nil {
		options = &bolt.Options{Timeout: time.Second}
	} else if options.Timeout == 0 {
		options.Timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, options)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketEvents, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, nowFn: time.Now}, nil
}

// Close releases the underlying Bolt database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return buf[:]
}

// Append stores the events committed at height in a single transaction.
func (s *Store) Append(height uint64, evts []*types.Event) error {
	if len(evts) == 0 {
		return nil
	}
	recordedAt := s.nowFn().UTC()
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if raw := meta.Get(keyLastHeight); len(raw) == 8 && binary.BigEndian.Uint64(raw) > height {
			return ErrHeightRegression
		}
		bucket := tx.Bucket(bucketEvents)
		for _, evt := range evts {
			if evt == nil {
				continue
			}
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			payload, err := json.Marshal(Record{
				Seq:        seq,
				Height:     height,
				Type:       evt.Type,
				Attributes: evt.Attributes,
				RecordedAt: recordedAt,
			})
			if err != nil {
				return err
			}
			if err := bucket.Put(seqKey(seq), payload); err != nil {
				return err
			}
		}
		return meta.Put(keyLastHeight, seqKey(height))
	})
}

// List returns up to limit records with a sequence number of at least from.
// A zero limit returns every remaining record.
func (s *Store) List(from uint64, limit int) ([]Record, error) {
	out := make([]Record, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(bucketEvents).Cursor()
		for k, v := cursor.Seek(seqKey(from)); k != nil; k, v = cursor.Next() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// LastHeight returns the height of the most recent append.
func (s *Store) LastHeight() (uint64, error) {
	var height uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(bucketMeta).Get(keyLastHeight); len(raw) == 8 {
			height = binary.BigEndian.Uint64(raw)
		}
		return nil
	})
	return height, err
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketEvents).Stats().KeyN
		return nil
	})
	return n, err
}
