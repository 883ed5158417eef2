// Package persistence keeps a small bbolt-backed store of each fan's last
// EMA temperature reading, so a daemon restart resumes smoothing from a
// warm value instead of snapping to the first raw sample.
package persistence

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	bolt "go.etcd.io/bbolt"
)

var emaBucket = []byte("ema")

// Store wraps a bbolt database file.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the store at path, creating the ema bucket if it
// doesn't already exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open persistence db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(emaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init persistence db %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying file lock.
func (s *Store) Close() error { return s.db.Close() }

// SaveEMA persists fanIndex's last filtered temperature.
func (s *Store) SaveEMA(fanIndex int, value float64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(value))
		return tx.Bucket(emaBucket).Put(fanIndexKey(fanIndex), buf[:])
	})
}

// LoadEMA returns fanIndex's last persisted temperature, if any.
func (s *Store) LoadEMA(fanIndex int) (float64, bool, error) {
	var value float64
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(emaBucket).Get(fanIndexKey(fanIndex))
		if raw == nil {
			return nil
		}
		if len(raw) != 8 {
			return fmt.Errorf("corrupt EMA record for fan %d", fanIndex)
		}
		value = math.Float64frombits(binary.BigEndian.Uint64(raw))
		found = true
		return nil
	})
	return value, found, err
}

func fanIndexKey(fanIndex int) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(fanIndex))
	return buf[:]
}
