package bolt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.etcd.io/bbolt"

	"github.com/vbonduro/invoicescan/internal/domain"
	"github.com/vbonduro/invoicescan/internal/imagestore"
)

var (
	imagesBucket = []byte("images")
	typesBucket  = []byte("image_types")
)

// BoltImageStore keeps image blobs inside a single bbolt file.
type BoltImageStore struct {
	db *bbolt.DB
}

func NewBoltImageStore(path string) (*BoltImageStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(imagesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(typesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltImageStore{db: db}, nil
}

func (s *BoltImageStore) Save(ctx context.Context, name, mimeType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	key := imagestore.UniqueName(name, mimeType)
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(imagesBucket).Put([]byte(key), data); err != nil {
			return err
		}
		return tx.Bucket(typesBucket).Put([]byte(key), []byte(mimeType))
	})
	if err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return key, nil
}

func (s *BoltImageStore) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	var data []byte
	var mimeType string
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(imagesBucket).Get([]byte(storageKey))
		if v == nil {
			return fmt.Errorf("image %q: %w", storageKey, domain.ErrNotFound)
		}
		// Values are only valid for the life of the transaction.
		data = bytes.Clone(v)
		mimeType = string(tx.Bucket(typesBucket).Get([]byte(storageKey)))
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	if mimeType == "" {
		mimeType = imagestore.ExtToMimeType(storageKey)
	}
	return io.NopCloser(bytes.NewReader(data)), mimeType, nil
}

func (s *BoltImageStore) Delete(ctx context.Context, storageKey string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		images := tx.Bucket(imagesBucket)
		if images.Get([]byte(storageKey)) == nil {
			return fmt.Errorf("image %q: %w", storageKey, domain.ErrNotFound)
		}
		if err := images.Delete([]byte(storageKey)); err != nil {
			return err
		}
		return tx.Bucket(typesBucket).Delete([]byte(storageKey))
	})
}

func (s *BoltImageStore) Close() error {
	return s.db.Close()
}
