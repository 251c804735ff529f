// Package storage mints signed URLs for uploaded assets and relocates
// temporary uploads to their permanent keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultExpiry is the lifetime of a signed URL when the caller gives none
const DefaultExpiry = time.Hour

var (
	// ErrNotFound is returned when a key does not exist in the blob store
	ErrNotFound = errors.New("object not found")
	// ErrTempNotRemoved marks a relocation that reached its permanent key
	// but left the temporary object behind
	ErrTempNotRemoved = errors.New("temporary object not removed")
)

// Error is a blob store failure. It keeps the original cause.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BlobStore is an object store able to issue time-limited URLs
type BlobStore interface {
	PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	Delete(ctx context.Context, key string) error
	// URL returns the permanent, unsigned URL of key
	URL(key string) string
}
