package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orangehats/orangehats/internal/content"
	"github.com/orangehats/orangehats/internal/db"
	"github.com/orangehats/orangehats/internal/repository"
	"github.com/orangehats/orangehats/internal/storage"
)

const bucketURL = "https://orange-hats.s3.us-east-1.amazonaws.com/"

var errSign = errors.New("signing refused")

// fakeBlobs is an in-memory storage.BlobStore
type fakeBlobs struct {
	mu       sync.Mutex
	objects  map[string]bool
	failSign map[string]bool
}

func newFakeBlobs(keys ...string) *fakeBlobs {
	b := &fakeBlobs{objects: map[string]bool{}, failSign: map[string]bool{}}
	for _, k := range keys {
		b.objects[k] = true
	}
	return b
}

func (b *fakeBlobs) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://signed.test/%s?op=put&type=%s", key, contentType), nil
}

func (b *fakeBlobs) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSign[key] {
		return "", errSign
	}
	return "https://signed.test/" + key, nil
}

func (b *fakeBlobs) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.objects[key], nil
}

func (b *fakeBlobs) Copy(ctx context.Context, src, dst string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.objects[src] {
		return storage.ErrNotFound
	}
	b.objects[dst] = true
	return nil
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *fakeBlobs) URL(key string) string {
	return bucketURL + key
}

func (b *fakeBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.objects[key]
}

type recordingNotifier struct {
	mu   sync.Mutex
	subs []Submission
	err  error
}

func (n *recordingNotifier) ApplicationSubmitted(ctx context.Context, s Submission) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, s)
	return n.err
}

type testEnv struct {
	audits    *AuditService
	auditors  *AuditorService
	tools     *ToolService
	research  *ResearchService
	apps      *ApplicationService
	blobs     *fakeBlobs
	notifier  *recordingNotifier
	mirrorDir string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Open(":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { database.Close() })

	root := t.TempDir()
	idx, err := content.OpenIndex(filepath.Join(root, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mirrorDir := filepath.Join(root, "research")
	blobs := newFakeBlobs()
	files := storage.NewResolver(blobs, 0, logger)
	notifier := &recordingNotifier{}

	auditRepo := repository.NewAuditRepository(database.DB)
	auditorRepo := repository.NewAuditorRepository(database.DB)

	return &testEnv{
		audits:    NewAuditService(auditRepo, auditorRepo, files, logger),
		auditors:  NewAuditorService(auditorRepo, logger),
		tools:     NewToolService(repository.NewToolRepository(database.DB), files, logger),
		research:  NewResearchService(repository.NewResearchRepository(database.DB), content.NewSynchronizer(mirrorDir, idx, logger), files, logger),
		apps:      NewApplicationService(repository.NewApplicationRepository(database.DB), notifier, logger),
		blobs:     blobs,
		notifier:  notifier,
		mirrorDir: mirrorDir,
	}
}

func ptr[T any](v T) *T {
	return &v
}
