// Package retain keeps the chain state across restarts, standing in for
// the memory a device preserves through deep sleep.
package retain

import (
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/robotalks/telechain/pkg/chain"
)

var (
	bucketName = []byte("retained")
	chainKey   = []byte("chain")
)

// Store saves chain.State in a bbolt file.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open retained state %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create retained bucket")
	}
	return &Store{db: db}, nil
}

// Load restores s. It returns false if nothing was saved.
func (r *Store) Load(s *chain.State) (found bool, err error) {
	err = r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketName).Get(chainKey)
		if data == nil {
			return nil
		}
		found = true
		return s.UnmarshalBinary(data)
	})
	return
}

// Save persists s.
func (r *Store) Save(s *chain.State) error {
	data, err := s.MarshalBinary()
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(chainKey, data)
	})
}

// Close implements io.Closer.
func (r *Store) Close() error {
	return r.db.Close()
}
