// Package content keeps the flat-file mirror of research records.
package content

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/orangehats/orangehats/internal/metrics"
	"github.com/orangehats/orangehats/internal/models"
)

// ErrNotFound is returned when no mirror exists for a slug
var ErrNotFound = errors.New("post not found")

// Error is a mirror I/O failure. It keeps the original cause.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("content %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Synchronizer writes one mirror file per research record and looks
// mirrors up by exact slug through the index.
type Synchronizer struct {
	dir    string
	index  *Index
	logger *slog.Logger
	mu     sync.Mutex
}

func NewSynchronizer(dir string, index *Index, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		dir:    dir,
		index:  index,
		logger: logger.With("component", "content"),
	}
}

// Dir returns the mirror directory
func (s *Synchronizer) Dir() string {
	return s.dir
}

// Create writes the mirror of r and returns its public URL
func (s *Synchronizer) Create(r *models.Research) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, err := s.write(r)
	metrics.IncMirrorOp("create", err)
	return url, err
}

// Update removes the mirrors of previousSlug and r.Slug, then writes r afresh.
// The whole file is rewritten every time.
func (s *Synchronizer) Update(previousSlug string, r *models.Research) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, err := s.update(previousSlug, r)
	metrics.IncMirrorOp("update", err)
	return url, err
}

func (s *Synchronizer) update(previousSlug string, r *models.Research) (string, error) {
	if previousSlug != "" && previousSlug != r.Slug {
		if err := s.remove(previousSlug); err != nil {
			return "", err
		}
	}
	if err := s.remove(r.Slug); err != nil {
		return "", err
	}
	return s.write(r)
}

// Delete removes the mirror of slug. A missing mirror is not an error.
func (s *Synchronizer) Delete(slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.remove(slug)
	metrics.IncMirrorOp("delete", err)
	return err
}

// GetBySlug reads the mirror of slug
func (s *Synchronizer) GetBySlug(slug string) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := s.find(slug)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("post %q: %w", slug, ErrNotFound)
	}

	p, err := s.read(name)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// All returns every mirrored post, newest publication first
func (s *Synchronizer) All() ([]Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.list()
	if err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(names))
	for _, name := range names {
		p, err := s.read(name)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}

	slices.SortStableFunc(posts, func(a, b Post) int {
		return cmp.Or(cmp.Compare(b.PublishedAt, a.PublishedAt), cmp.Compare(a.Slug, b.Slug))
	})
	return posts, nil
}

// Reindex rebuilds the slug index from the mirror files on disk
func (s *Synchronizer) Reindex() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.list()
	if err != nil {
		return 0, err
	}

	entries := make(map[string]string, len(names))
	for _, name := range names {
		p, err := s.read(name)
		if err != nil {
			s.logger.Warn("skipping unreadable mirror", "file", name, "error", err)
			continue
		}
		if p.Slug == "" {
			p.Slug, _ = tokenOf(name)
		}
		entries[p.Slug] = name
	}

	if err := s.index.Replace(entries); err != nil {
		return 0, &Error{Op: "reindex", Path: s.dir, Err: err}
	}
	return len(entries), nil
}

// EnsureIndex rebuilds the slug index when it is empty, for example after
// the index file was removed or the mirror directory was copied in
func (s *Synchronizer) EnsureIndex() (int, error) {
	n, err := s.index.Len()
	if err != nil {
		return 0, &Error{Op: "reindex", Path: s.dir, Err: err}
	}
	if n > 0 {
		return n, nil
	}
	return s.Reindex()
}

func (s *Synchronizer) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return &Error{Op: "mkdir", Path: s.dir, Err: err}
	}
	return nil
}

func (s *Synchronizer) write(r *models.Research) (string, error) {
	if err := s.ensureDir(); err != nil {
		return "", err
	}

	// a stale mirror under another date would shadow this one
	if old, err := s.find(r.Slug); err != nil {
		return "", err
	} else if old != "" && old != FileName(r.PublishedAt, r.Slug) {
		if err := s.unlink(old); err != nil {
			return "", err
		}
	}

	p := newPost(r)
	data, err := encode(p)
	if err != nil {
		return "", err
	}

	name := FileName(r.PublishedAt, r.Slug)
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", &Error{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", &Error{Op: "write", Path: path, Err: err}
	}

	if err := s.index.Put(r.Slug, name); err != nil {
		return "", &Error{Op: "index", Path: name, Err: err}
	}

	s.logger.Debug("mirror written", "slug", r.Slug, "file", name)
	return p.PublicURL, nil
}

func (s *Synchronizer) remove(slug string) error {
	name, err := s.find(slug)
	if err != nil {
		return err
	}
	if name != "" {
		if err := s.unlink(name); err != nil {
			return err
		}
	}
	if err := s.index.Remove(slug); err != nil {
		return &Error{Op: "index", Path: slug, Err: err}
	}
	return nil
}

func (s *Synchronizer) unlink(name string) error {
	path := filepath.Join(s.dir, name)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Op: "remove", Path: path, Err: err}
	}
	s.logger.Debug("mirror removed", "file", name)
	return nil
}

// find returns the file name holding slug, or "" when there is none.
// The index is consulted first; a miss falls back to an exact token
// match over the directory and repairs the index.
func (s *Synchronizer) find(slug string) (string, error) {
	if slug == "" {
		return "", nil
	}
	if err := s.ensureDir(); err != nil {
		return "", err
	}

	name, ok, err := s.index.Lookup(slug)
	if err != nil {
		return "", &Error{Op: "index", Path: slug, Err: err}
	}
	if ok {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
			return name, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", &Error{Op: "stat", Path: name, Err: err}
		}
		s.logger.Warn("index points at missing mirror", "slug", slug, "file", name)
	}

	names, err := s.list()
	if err != nil {
		return "", err
	}

	want := fileToken(slug)
	found := ""
	for _, n := range names {
		if tok, ok := tokenOf(n); ok && tok == want {
			found = n // names are sorted, so the latest date wins
		}
	}

	switch {
	case found != "":
		err = s.index.Put(slug, found)
	case ok:
		err = s.index.Remove(slug)
	}
	if err != nil {
		return "", &Error{Op: "index", Path: slug, Err: err}
	}
	return found, nil
}

// list returns mirror file names in lexical order
func (s *Synchronizer) list() ([]string, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &Error{Op: "list", Path: s.dir, Err: err}
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == Ext {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *Synchronizer) read(name string) (Post, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Post{}, &Error{Op: "read", Path: path, Err: ErrNotFound}
		}
		return Post{}, &Error{Op: "read", Path: path, Err: err}
	}

	p, err := decode(data)
	if err != nil {
		return Post{}, &Error{Op: "parse", Path: path, Err: err}
	}
	return p, nil
}
