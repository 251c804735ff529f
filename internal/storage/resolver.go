package storage

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/orangehats/orangehats/internal/metrics"
)

// Resolver issues signed URLs and moves temporary uploads into place.
// Signed URLs are never cached; every call signs afresh.
type Resolver struct {
	store  BlobStore
	expiry time.Duration
	logger *slog.Logger
}

// Upload is a signed upload grant for one key
type Upload struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Location is where a finalized asset lives
type Location struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// NewResolver wraps store. A zero expiry means DefaultExpiry.
func NewResolver(store BlobStore, expiry time.Duration, logger *slog.Logger) *Resolver {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Resolver{
		store:  store,
		expiry: expiry,
		logger: logger.With("component", "storage"),
	}
}

func (r *Resolver) expires(d time.Duration) time.Duration {
	if d <= 0 {
		return r.expiry
	}
	return d
}

// UploadURL grants write access to key for expiresIn (0 means the default)
func (r *Resolver) UploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, error) {
	u, err := r.store.PresignPut(ctx, key, contentType, r.expires(expiresIn))
	metrics.IncStorageOp("presign_put", err)
	if err != nil {
		return "", wrap("presign_put", key, err)
	}
	return u, nil
}

// DownloadURL grants read access to key for expiresIn (0 means the default)
func (r *Resolver) DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if key == "" {
		return "", &Error{Op: "presign_get", Err: ErrNotFound}
	}
	u, err := r.store.PresignGet(ctx, key, r.expires(expiresIn))
	metrics.IncStorageOp("presign_get", err)
	if err != nil {
		return "", wrap("presign_get", key, err)
	}
	return u, nil
}

// PrepareUpload derives the key for fileName and signs an upload for it
func (r *Resolver) PrepareUpload(ctx context.Context, kind Kind, entityID, fileName string) (*Upload, error) {
	key, err := KeyFor(kind, entityID, fileName)
	if err != nil {
		return nil, err
	}

	u, err := r.UploadURL(ctx, key, ContentTypeFor(kind, fileName), 0)
	if err != nil {
		return nil, err
	}

	return &Upload{Key: key, URL: u}, nil
}

// URL returns the permanent, unsigned URL of key
func (r *Resolver) URL(key string) string {
	return r.store.URL(key)
}

// KeyFromURL recovers the key of a permanent URL from this store or any AWS endpoint
func (r *Resolver) KeyFromURL(raw string) string {
	if base := r.store.URL(""); base != "" && strings.HasPrefix(raw, base) {
		return strings.TrimPrefix(raw, base)
	}
	return KeyFromURL(raw)
}

// Finalize moves a temporary upload to the permanent key of the entity,
// replacing whatever is stored there. A key that is not temporary is
// returned unchanged.
//
// Finalize can be repeated after a partial failure. While the source exists
// it is copied over the destination, and it is deleted only after the
// destination is confirmed. A missing source with the destination in place
// means an earlier call already finished. When the delete fails the
// permanent location is still returned, together with an error matching
// ErrTempNotRemoved.
func (r *Resolver) Finalize(ctx context.Context, kind Kind, entityID, key string) (*Location, error) {
	if !IsTemp(key) {
		return &Location{Key: key, URL: r.store.URL(key)}, nil
	}

	dst, err := KeyFor(kind, entityID, path.Base(key))
	if err != nil {
		return nil, err
	}
	loc := &Location{Key: dst, URL: r.store.URL(dst)}

	pending, err := r.exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !pending {
		placed, err := r.exists(ctx, dst)
		if err != nil {
			return nil, err
		}
		if !placed {
			return nil, &Error{Op: "copy", Key: key, Err: ErrNotFound}
		}
		return loc, nil
	}

	err = r.store.Copy(ctx, key, dst)
	metrics.IncStorageOp("copy", err)
	if err != nil {
		return nil, wrap("copy", key, err)
	}

	placed, err := r.exists(ctx, dst)
	if err != nil {
		return nil, err
	}
	if !placed {
		return nil, &Error{Op: "copy", Key: dst, Err: ErrNotFound}
	}

	err = r.store.Delete(ctx, key)
	metrics.IncStorageOp("delete", err)
	if err != nil {
		metrics.IncStorageOrphan()
		r.logger.Error("temporary upload left behind",
			"temp_key", key,
			"key", dst,
			"error", err)
		return loc, &Error{Op: "delete", Key: key, Err: errors.Join(ErrTempNotRemoved, err)}
	}

	r.logger.Info("upload finalized", "from", key, "to", dst)
	return loc, nil
}

func (r *Resolver) exists(ctx context.Context, key string) (bool, error) {
	ok, err := r.store.Exists(ctx, key)
	metrics.IncStorageOp("exists", err)
	if err != nil {
		return false, wrap("exists", key, err)
	}
	return ok, nil
}

func wrap(op, key string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Key: key, Err: err}
}
