package content

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orangehats/orangehats/internal/models"
)

func newTestSynchronizer(t *testing.T) *Synchronizer {
	t.Helper()
	root := t.TempDir()

	idx, err := OpenIndex(filepath.Join(root, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	// the mirror directory is created lazily
	return NewSynchronizer(filepath.Join(root, "content", "research"), idx, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func research(title, body string, published string) *models.Research {
	at, _ := time.Parse("2006-01-02", published)
	now := time.Date(2024, 3, 16, 8, 30, 0, 0, time.UTC)
	return &models.Research{
		ID:          "r-" + Slugify(title),
		Protocol:    "sBTC",
		Type:        "Bridge",
		Title:       title,
		Description: "A look at " + title,
		Content:     body,
		Slug:        Slugify(title),
		PublishedAt: at,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateMirrorScenario(t *testing.T) {
	s := newTestSynchronizer(t)
	r := research("Re-Entrancy in sBTC Bridge!", "# Findings\n\nBody text.\n", "2024-03-15")

	assert.Equal(t, "re-entrancy-in-sbtc-bridge", r.Slug)

	url, err := s.Create(r)
	require.NoError(t, err)
	assert.Equal(t, "/research/2024/03/15/re-entrancy-in-sbtc-bridge", url)

	_, err = os.Stat(filepath.Join(s.Dir(), "2024-03-15-re-entrancy-in-sbtc-bridge.mdx"))
	assert.NoError(t, err)

	post, err := s.GetBySlug(r.Slug)
	require.NoError(t, err)
	assert.Equal(t, r.Content, post.Content)
	assert.Equal(t, r.Title, post.Title)
	assert.Equal(t, "2024-03-15", post.PublishedAt)
	assert.Equal(t, r.ID, post.ID)
	assert.Equal(t, url, post.PublicURL)
	assert.Equal(t, "2024-03-16T08:30:00.000Z", post.CreatedAt)
}

func TestDeleteThenGetIsNotFound(t *testing.T) {
	s := newTestSynchronizer(t)
	r := research("Clarity Pitfalls", "body", "2024-01-02")

	_, err := s.Create(r)
	require.NoError(t, err)

	require.NoError(t, s.Delete(r.Slug))

	_, err = s.GetBySlug(r.Slug)
	assert.True(t, errors.Is(err, ErrNotFound))

	// deleting again is a no-op
	assert.NoError(t, s.Delete(r.Slug))
}

func TestExactSlugMatch(t *testing.T) {
	s := newTestSynchronizer(t)
	short := research("Audit", "short body", "2024-05-01")
	long := research("Audit v2", "long body", "2024-05-01")
	require.Equal(t, "audit-v2", long.Slug)

	_, err := s.Create(long)
	require.NoError(t, err)
	_, err = s.Create(short)
	require.NoError(t, err)

	require.NoError(t, s.Delete("audit"))

	post, err := s.GetBySlug("audit-v2")
	require.NoError(t, err)
	assert.Equal(t, "long body", post.Content)

	_, err = s.GetBySlug("audit")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFallbackScanRepairsIndex(t *testing.T) {
	s := newTestSynchronizer(t)
	r := research("Stacking Risks", "body", "2023-12-31")

	_, err := s.Create(r)
	require.NoError(t, err)
	require.NoError(t, s.index.Remove(r.Slug))

	post, err := s.GetBySlug(r.Slug)
	require.NoError(t, err)
	assert.Equal(t, "body", post.Content)

	name, ok, err := s.index.Lookup(r.Slug)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2023-12-31-stacking-risks.mdx", name)
}

func TestStaleIndexEntry(t *testing.T) {
	s := newTestSynchronizer(t)
	require.NoError(t, s.index.Put("ghost", "2020-01-01-ghost.mdx"))

	_, err := s.GetBySlug("ghost")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, ok, err := s.index.Lookup("ghost")
	require.NoError(t, err)
	assert.False(t, ok, "stale entry should be dropped")
}

func TestUpdateRewritesMirror(t *testing.T) {
	s := newTestSynchronizer(t)
	r := research("Oracle Drift", "v1", "2024-02-10")

	_, err := s.Create(r)
	require.NoError(t, err)

	// new title, slug and date
	prev := r.Slug
	r.Title = "Oracle Drift Revisited"
	r.Slug = Slugify(r.Title)
	r.Content = "v2"
	r.PublishedAt = time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC)

	url, err := s.Update(prev, r)
	require.NoError(t, err)
	assert.Equal(t, "/research/2024/02/11/oracle-drift-revisited", url)

	_, err = s.GetBySlug(prev)
	assert.True(t, errors.Is(err, ErrNotFound))

	post, err := s.GetBySlug(r.Slug)
	require.NoError(t, err)
	assert.Equal(t, "v2", post.Content)

	posts, err := s.All()
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestCreateReplacesStaleFileForSlug(t *testing.T) {
	s := newTestSynchronizer(t)
	r := research("Moving Target", "old", "2024-01-01")
	_, err := s.Create(r)
	require.NoError(t, err)

	r.PublishedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	r.Content = "new"
	_, err = s.Create(r)
	require.NoError(t, err)

	posts, err := s.All()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "new", posts[0].Content)
}

func TestAllNewestFirst(t *testing.T) {
	s := newTestSynchronizer(t)
	for _, r := range []*models.Research{
		research("First", "1", "2023-01-01"),
		research("Third", "3", "2024-07-01"),
		research("Second", "2", "2023-06-15"),
	} {
		_, err := s.Create(r)
		require.NoError(t, err)
	}

	posts, err := s.All()
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "third", posts[0].Slug)
	assert.Equal(t, "second", posts[1].Slug)
	assert.Equal(t, "first", posts[2].Slug)
}

func TestAllEmptyCreatesDirectory(t *testing.T) {
	s := newTestSynchronizer(t)

	posts, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, posts)

	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestReindex(t *testing.T) {
	s := newTestSynchronizer(t)
	for _, r := range []*models.Research{
		research("Alpha", "a", "2024-01-01"),
		research("Beta", "b", "2024-01-02"),
	} {
		_, err := s.Create(r)
		require.NoError(t, err)
	}
	require.NoError(t, s.index.Replace(nil))

	n, err := s.Reindex()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := s.index.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEnsureIndex(t *testing.T) {
	s := newTestSynchronizer(t)

	n, err := s.EnsureIndex()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.Create(research("Alpha", "a", "2024-01-01"))
	require.NoError(t, err)
	require.NoError(t, s.index.Replace(nil))

	n, err = s.EnsureIndex()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	name, ok, err := s.index.Lookup("alpha")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-01-01-alpha.mdx", name)

	// a populated index is left alone
	n, err = s.EnsureIndex()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetBySlugIOError(t *testing.T) {
	s := newTestSynchronizer(t)
	require.NoError(t, os.MkdirAll(s.Dir(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "2024-01-01-broken.mdx"), []byte("no front matter"), 0644))

	_, err := s.GetBySlug("broken")
	require.Error(t, err)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "parse", ce.Op)
}
