package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketSlugs = []byte("slugs")

// Index maps a slug to the exact name of its mirror file
type Index struct {
	db *bolt.DB
}

// OpenIndex opens (creating if needed) the slug index at path
func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open content index: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSlugs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create slugs bucket: %w", err)
	}

	return &Index{db: db}, nil
}

// Lookup returns the file name recorded for slug
func (i *Index) Lookup(slug string) (string, bool, error) {
	var name string
	err := i.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketSlugs).Get([]byte(slug)); v != nil {
			name = string(v)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return name, name != "", nil
}

func (i *Index) Put(slug, name string) error {
	return i.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSlugs).Put([]byte(slug), []byte(name))
	})
}

func (i *Index) Remove(slug string) error {
	return i.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSlugs).Delete([]byte(slug))
	})
}

// Replace swaps the whole index for entries in one transaction
func (i *Index) Replace(entries map[string]string) error {
	return i.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketSlugs); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket(bucketSlugs)
		if err != nil {
			return err
		}
		for slug, name := range entries {
			if err := b.Put([]byte(slug), []byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len returns the number of indexed slugs
func (i *Index) Len() (int, error) {
	var n int
	err := i.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketSlugs).Stats().KeyN
		return nil
	})
	return n, err
}

func (i *Index) Close() error {
	return i.db.Close()
}
