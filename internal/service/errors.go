// Package service composes the repositories, the blob store and the research
// mirror into the operations exposed over HTTP and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/orangehats/orangehats/internal/query"
	"github.com/orangehats/orangehats/internal/storage"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// ValidationError lists the rejected fields of a payload by their JSON name
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + " " + e.Fields[name]
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidField(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %q: %w", what, id, ErrNotFound)
}

// listErr turns rejected paging or sorting into ErrInvalidInput
func listErr(err error) error {
	if errors.Is(err, query.ErrInvalidRequest) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

// keyErr turns a malformed file name or entity id into ErrInvalidInput;
// blob store failures pass through.
func keyErr(err error) error {
	var se *storage.Error
	if errors.As(err, &se) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// finalize relocates a temporary upload named by field to its permanent key.
// A temporary object left behind after a successful copy is logged and
// otherwise ignored.
func finalize(ctx context.Context, files *storage.Resolver, logger *slog.Logger, field string, kind storage.Kind, id, key string) (*storage.Location, error) {
	loc, err := files.Finalize(ctx, kind, id, key)
	switch {
	case err == nil:
		return loc, nil
	case loc != nil && errors.Is(err, storage.ErrTempNotRemoved):
		logger.Warn("upload relocated, temporary object remains",
			"kind", kind,
			"id", id,
			"key", loc.Key,
			"error", err)
		return loc, nil
	case errors.Is(err, storage.ErrNotFound):
		return nil, invalidField(field, "does not name an uploaded object")
	}
	return nil, keyErr(err)
}
