package media

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v3"
)

// key layout: "d:"+key holds the bytes, "m:"+key holds the content type.
var (
	dataPrefix = []byte("d:")
	metaPrefix = []byte("m:")
)

// BadgerStore keeps blobs in an embedded badger database.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func dataKey(key string) []byte { return append(append([]byte{}, dataPrefix...), key...) }
func metaKey(key string) []byte { return append(append([]byte{}, metaPrefix...), key...) }

func (s *BadgerStore) Put(_ context.Context, blob Blob) error {
	if blob.Key == "" {
		return fmt.Errorf("media: empty key")
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(blob.Key), blob.Data); err != nil {
			return err
		}
		return txn.Set(metaKey(blob.Key), []byte(blob.ContentType))
	})
	if err != nil {
		return fmt.Errorf("store blob %s: %w", blob.Key, err)
	}
	return nil
}

func (s *BadgerStore) Get(_ context.Context, key string) (Blob, error) {
	blob := Blob{Key: key}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(key))
		if err != nil {
			return err
		}
		blob.Data, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}
		meta, err := txn.Get(metaKey(key))
		if err != nil {
			return err
		}
		ct, err := meta.ValueCopy(nil)
		if err != nil {
			return err
		}
		blob.ContentType = string(ct)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Blob{}, ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("load blob %s: %w", key, err)
	}
	return blob, nil
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(dataKey(key)); err != nil {
			return err
		}
		return txn.Delete(metaKey(key))
	})
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
