package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memStore is an in-memory BlobStore for tests
type memStore struct {
	mu        sync.Mutex
	objects   map[string]bool
	contents  map[string]string
	copies    int
	failCopy  error
	failDel   error
	failSign  map[string]error
	signedTTL time.Duration
}

func newMemStore(keys ...string) *memStore {
	m := &memStore{objects: map[string]bool{}, contents: map[string]string{}, failSign: map[string]error{}}
	for _, k := range keys {
		m.objects[k] = true
	}
	return m
}

func (m *memStore) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signedTTL = expires
	return fmt.Sprintf("https://signed.test/%s?op=put&type=%s&ttl=%d", key, contentType, int(expires.Seconds())), nil
}

func (m *memStore) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failSign[key]; err != nil {
		return "", err
	}
	m.signedTTL = expires
	return fmt.Sprintf("https://signed.test/%s?op=get&ttl=%d", key, int(expires.Seconds())), nil
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key], nil
}

func (m *memStore) Copy(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCopy != nil {
		return m.failCopy
	}
	if !m.objects[src] {
		return ErrNotFound
	}
	m.copies++
	m.objects[dst] = true
	m.contents[dst] = m.contents[src]
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDel != nil {
		return m.failDel
	}
	delete(m.objects, key)
	delete(m.contents, key)
	return nil
}

func (m *memStore) URL(key string) string {
	return "https://orange-hats.s3.us-east-1.amazonaws.com/" + key
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key]
}

func (m *memStore) put(key, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = true
	m.contents[key] = body
}

func (m *memStore) body(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contents[key]
}
