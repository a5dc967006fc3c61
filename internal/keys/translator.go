// Package keys allocates stable dense int32 keys for source player IDs and
// persists the two-way mapping in BoltDB, so a player keeps the same key
// across compactions.
package keys

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/boltdb/bolt"
)

var (
	idBucket  = []byte("playerKey")
	valBucket = []byte("playerID")
)

// File is the database file name inside the data directory.
const File = "player_keys.bolt"

// Translator maps player IDs to int32 keys. Keys start at 1 and never change
// once allocated.
type Translator struct {
	db *bolt.DB
}

// Open opens or creates the key database at path.
func Open(path string) (*Translator, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open key db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(idBucket); err != nil {
			return fmt.Errorf("creating %s bucket: %w", idBucket, err)
		}
		if _, err := tx.CreateBucketIfNotExists(valBucket); err != nil {
			return fmt.Errorf("creating %s bucket: %w", valBucket, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure key buckets: %w", err)
	}
	return &Translator{db: db}, nil
}

// Close syncs and closes the database.
func (t *Translator) Close() error {
	if err := t.db.Sync(); err != nil {
		return fmt.Errorf("failed to sync key db: %w", err)
	}
	return t.db.Close()
}

func encodeKey(k int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(k))
	return b
}

func decodeKey(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}

// Assign returns the key of every ID, allocating keys for unseen IDs in one
// transaction. IDs are allocated in the order given.
func (t *Translator) Assign(ids []string) (map[string]int32, error) {
	out := make(map[string]int32, len(ids))
	err := t.db.Update(func(tx *bolt.Tx) error {
		kb := tx.Bucket(idBucket)
		vb := tx.Bucket(valBucket)

		for _, id := range ids {
			if _, done := out[id]; done {
				continue
			}
			if existing := vb.Get([]byte(id)); len(existing) == 4 {
				out[id] = decodeKey(existing)
				continue
			}

			seq, err := kb.NextSequence()
			if err != nil {
				return err
			}
			if seq > math.MaxInt32 {
				return fmt.Errorf("player key space exhausted at %d", seq)
			}
			key := int32(seq)
			if err := kb.Put(encodeKey(key), []byte(id)); err != nil {
				return fmt.Errorf("inserting into %s bucket: %w", idBucket, err)
			}
			if err := vb.Put([]byte(id), encodeKey(key)); err != nil {
				return fmt.Errorf("inserting into %s bucket: %w", valBucket, err)
			}
			out[id] = key
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to assign player keys: %w", err)
	}
	return out, nil
}
