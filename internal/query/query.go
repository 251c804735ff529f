// Package query runs paginated, searchable, sortable listings over any entity
// type described by an Adapter.
package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/orangehats/orangehats/internal/metrics"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidRequest is returned for out-of-range paging or a sort field outside the allow-list
var ErrInvalidRequest = errors.New("invalid query request")

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Request is a listing request as received from a client. Zero values take defaults.
type Request struct {
	Page          int
	Limit         int
	Search        string
	SortField     string
	SortDirection Direction
}

// Offset returns the number of items skipped before the requested page
func (r Request) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Metadata describes the position of a page within the full result set
type Metadata struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalItems      int  `json:"totalItems"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewMetadata computes paging metadata for page of size limit over total items
func NewMetadata(page, limit, total int) Metadata {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Metadata{
		CurrentPage:     page,
		TotalPages:      totalPages,
		TotalItems:      total,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

type Page[T any] struct {
	Items    []T      `json:"items"`
	Metadata Metadata `json:"metadata"`
}

// Ordering is a concrete ordering directive for one allow-listed sort field.
// Exactly one of Clause or Compare is set: Clause is pushed to the store,
// Compare sorts the full matching set in memory.
type Ordering[T any] struct {
	Clause  string
	Compare func(a, b T) int
}

// Source is the store accessor behind an Adapter
type Source[T any] interface {
	// Count returns the number of records matching search ("" matches all)
	Count(ctx context.Context, search string) (int, error)
	// Find returns one window of matching records ordered by clause
	Find(ctx context.Context, search, clause string, limit, offset int) ([]T, error)
	// FindAll returns every matching record in the store's stable base order
	FindAll(ctx context.Context, search string) ([]T, error)
}

// Adapter describes how one entity type is listed
type Adapter[T any] struct {
	Name             string
	SortFields       []string
	DefaultSort      string
	DefaultDirection Direction
	// Order maps an allow-listed field to its ordering; it must reject unknown fields
	Order  func(field string, dir Direction) (Ordering[T], error)
	Source Source[T]
}

// Normalize applies defaults and checks the request against the adapter's allow-list
func (a Adapter[T]) Normalize(req Request) (Request, error) {
	if req.Page == 0 {
		req.Page = DefaultPage
	}
	if req.Limit == 0 {
		req.Limit = DefaultLimit
	}
	if req.SortField == "" {
		req.SortField = a.DefaultSort
	}
	if req.SortDirection == "" {
		req.SortDirection = a.DefaultDirection
	}

	if req.Page < 1 {
		return req, fmt.Errorf("%w: page must be >= 1", ErrInvalidRequest)
	}
	if req.Limit < 1 || req.Limit > MaxLimit {
		return req, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidRequest, MaxLimit)
	}
	if req.SortDirection != Asc && req.SortDirection != Desc {
		return req, fmt.Errorf("%w: sort direction %q", ErrInvalidRequest, req.SortDirection)
	}
	if !slices.Contains(a.SortFields, req.SortField) {
		return req, fmt.Errorf("%w: %s cannot be sorted by %q", ErrInvalidRequest, a.Name, req.SortField)
	}
	return req, nil
}

// Run executes req against the adapter and returns one page plus metadata
func Run[T any](ctx context.Context, a Adapter[T], req Request) (*Page[T], error) {
	req, err := a.Normalize(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.ObserveQuery(a.Name, time.Since(start).Seconds())
	}()

	order, err := a.Order(req.SortField, req.SortDirection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if order.Compare != nil {
		all, err := a.Source.FindAll(ctx, req.Search)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", a.Name, err)
		}
		cmp := order.Compare
		if req.SortDirection == Desc {
			cmp = func(x, y T) int { return order.Compare(y, x) }
		}
		slices.SortStableFunc(all, cmp)
		return &Page[T]{
			Items:    window(all, req.Offset(), req.Limit),
			Metadata: NewMetadata(req.Page, req.Limit, len(all)),
		}, nil
	}

	total, err := a.Source.Count(ctx, req.Search)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", a.Name, err)
	}

	items, err := a.Source.Find(ctx, req.Search, order.Clause, req.Limit, req.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", a.Name, err)
	}
	if items == nil {
		items = []T{}
	}

	return &Page[T]{
		Items:    items,
		Metadata: NewMetadata(req.Page, req.Limit, total),
	}, nil
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
