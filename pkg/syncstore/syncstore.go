// Package syncstore persists the /sync continuation token in a bbolt file so
// a restarted mirror does not have to replay the whole history.
package syncstore

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var logger = logrus.WithFields(logrus.Fields{"prefix": "syncstore"})

func SetLogger(l *logrus.Entry) {
	logger = l
}

var cursorKey = []byte("next_batch")

// Store keeps one cursor per account, each account in its own bucket.
type Store struct {
	db      *bolt.DB
	account []byte
}

// Open opens (or creates) the database at path for account.
func Open(path, account string) (*Store, error) {
	if account == "" {
		return nil, fmt.Errorf("syncstore: empty account")
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("syncstore: open %s: %w", path, err)
	}

	s := &Store{db: db, account: []byte(account)}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err2 := tx.CreateBucketIfNotExists(s.account)
		return err2
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("syncstore: create bucket for %s: %w", account, err)
	}

	logger.Debugf("opened %s for %s", path, account)

	return s, nil
}

// LoadCursor returns the saved cursor, "" when none was saved yet.
func (s *Store) LoadCursor() (string, error) {
	var cursor string

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.account)
		if v := b.Get(cursorKey); v != nil {
			cursor = string(v)
		}
		return nil
	})

	return cursor, err
}

func (s *Store) SaveCursor(cursor string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.account)
		return b.Put(cursorKey, []byte(cursor))
	})
}

// Reset forgets the saved cursor, the next start takes a full snapshot.
func (s *Store) Reset() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.account).Delete(cursorKey)
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
