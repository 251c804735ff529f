package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/orangehats/orangehats/internal/storage"
)

// assembleLimit bounds the per-page fan-out of mirror reads and URL signing
const assembleLimit = 8

// assemble maps every item through build concurrently and keeps the input
// order. build must not fail; it degrades its own item instead.
func assemble[T, R any](items []T, build func(*T) R) []R {
	out := make([]R, len(items))

	group := errgroup.Group{}
	group.SetLimit(assembleLimit)
	for i := range items {
		group.Go(func() error {
			out[i] = build(&items[i])
			return nil
		})
	}
	_ = group.Wait()

	return out
}

// signedOrNil signs a download of key, or returns nil when there is no key
// or signing fails
func signedOrNil(ctx context.Context, files *storage.Resolver, logger *slog.Logger, key string, attrs ...any) *string {
	if key == "" {
		return nil
	}
	u, err := files.DownloadURL(ctx, key, 0)
	if err != nil {
		logger.Warn("failed to sign image URL", append(attrs, "key", key, "error", err)...)
		return nil
	}
	return &u
}
