package storage

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"peertalk/readstate"
)

var (
	bucketReadMarks = []byte("read_marks")
)

// BboltStorage is the durable backend for per-counterpart read marks. It
// implements readstate.Store.
type BboltStorage struct {
	db  *bbolt.DB
	now func() time.Time
}

func NewBboltStorage(path string) (*BboltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketReadMarks)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BboltStorage{db: db, now: time.Now}, nil
}

func (s *BboltStorage) Close() error {
	return s.db.Close()
}

func (s *BboltStorage) Get(key string) (string, error) {
	var mark DBReadMark
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketReadMarks)
		data := b.Get([]byte(key))
		if data == nil {
			return readstate.ErrNotFound
		}
		return mark.UnmarshalBinary(data)
	})
	if err != nil {
		return "", err
	}
	return mark.Value, nil
}

func (s *BboltStorage) Set(key, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketReadMarks)
		mark := &DBReadMark{
			ID:        key,
			Value:     value,
			UpdatedAt: s.now().Unix(),
		}
		data, err := mark.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal read mark: %w", err)
		}
		return b.Put(mark.Key(), data)
	})
}
