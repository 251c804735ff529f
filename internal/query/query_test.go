package query

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string
	Tags []string
}

type sliceSource struct {
	items     []item
	findCalls int
	allCalls  int
}

func (s *sliceSource) match(search string) []item {
	var out []item
	for _, it := range s.items {
		if search == "" || strings.Contains(strings.ToLower(it.Name), strings.ToLower(search)) {
			out = append(out, it)
		}
	}
	return out
}

func (s *sliceSource) Count(_ context.Context, search string) (int, error) {
	return len(s.match(search)), nil
}

func (s *sliceSource) Find(_ context.Context, search, _ string, limit, offset int) ([]item, error) {
	s.findCalls++
	return window(s.match(search), offset, limit), nil
}

func (s *sliceSource) FindAll(_ context.Context, search string) ([]item, error) {
	s.allCalls++
	return s.match(search), nil
}

func firstTag(it item) string {
	if len(it.Tags) == 0 {
		return ""
	}
	return it.Tags[0]
}

func testAdapter(src Source[item]) Adapter[item] {
	return Adapter[item]{
		Name:             "items",
		SortFields:       []string{"name", "tag"},
		DefaultSort:      "name",
		DefaultDirection: Asc,
		Order: func(field string, dir Direction) (Ordering[item], error) {
			switch field {
			case "name":
				return Ordering[item]{Clause: "name " + string(dir)}, nil
			case "tag":
				return Ordering[item]{Compare: func(a, b item) int {
					return strings.Compare(firstTag(a), firstTag(b))
				}}, nil
			}
			return Ordering[item]{}, fmt.Errorf("unknown field %q", field)
		},
		Source: src,
	}
}

func makeItems(n int) []item {
	items := make([]item, n)
	for i := range items {
		items[i] = item{Name: fmt.Sprintf("item-%02d", i)}
	}
	return items
}

func TestNewMetadata(t *testing.T) {
	tests := []struct {
		page, limit, total int
		want               Metadata
	}{
		{1, 20, 0, Metadata{CurrentPage: 1, TotalPages: 0, TotalItems: 0}},
		{1, 20, 20, Metadata{CurrentPage: 1, TotalPages: 1, TotalItems: 20}},
		{1, 20, 21, Metadata{CurrentPage: 1, TotalPages: 2, TotalItems: 21, HasNextPage: true}},
		{2, 20, 21, Metadata{CurrentPage: 2, TotalPages: 2, TotalItems: 21, HasPreviousPage: true}},
		{2, 10, 35, Metadata{CurrentPage: 2, TotalPages: 4, TotalItems: 35, HasNextPage: true, HasPreviousPage: true}},
		{5, 10, 35, Metadata{CurrentPage: 5, TotalPages: 4, TotalItems: 35, HasPreviousPage: true}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page%d_limit%d_total%d", tt.page, tt.limit, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, NewMetadata(tt.page, tt.limit, tt.total))
		})
	}
}

func TestRunPagination(t *testing.T) {
	src := &sliceSource{items: makeItems(45)}
	a := testAdapter(src)

	for _, limit := range []int{1, 7, 20, 45, 100} {
		totalPages := (45 + limit - 1) / limit
		for page := 1; page <= totalPages+1; page++ {
			got, err := Run(context.Background(), a, Request{Page: page, Limit: limit})
			require.NoError(t, err)

			assert.LessOrEqual(t, len(got.Items), limit)
			assert.Equal(t, totalPages, got.Metadata.TotalPages)
			assert.Equal(t, 45, got.Metadata.TotalItems)
			assert.Equal(t, page < totalPages, got.Metadata.HasNextPage, "page %d limit %d", page, limit)
			assert.Equal(t, page > 1, got.Metadata.HasPreviousPage, "page %d limit %d", page, limit)
		}
	}
}

func TestRunDefaults(t *testing.T) {
	src := &sliceSource{items: makeItems(30)}

	got, err := Run(context.Background(), testAdapter(src), Request{})
	require.NoError(t, err)

	assert.Len(t, got.Items, DefaultLimit)
	assert.Equal(t, 1, got.Metadata.CurrentPage)
	assert.Equal(t, 1, src.findCalls)
	assert.Equal(t, 0, src.allCalls)
}

func TestRunInMemoryOrdering(t *testing.T) {
	src := &sliceSource{items: []item{
		{Name: "a", Tags: []string{"bob"}},
		{Name: "b", Tags: []string{"zoe"}},
		{Name: "c"},
		{Name: "d", Tags: []string{"amy"}},
		{Name: "e"},
	}}
	a := testAdapter(src)

	asc, err := Run(context.Background(), a, Request{SortField: "tag", SortDirection: Asc})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "e", "d", "a", "b"}, names(asc.Items))
	assert.Equal(t, 1, src.allCalls)
	assert.Equal(t, 0, src.findCalls)

	desc, err := Run(context.Background(), a, Request{SortField: "tag", SortDirection: Desc})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "d", "c", "e"}, names(desc.Items))

	second, err := Run(context.Background(), a, Request{Page: 2, Limit: 2, SortField: "tag", SortDirection: Asc})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "a"}, names(second.Items))
	assert.Equal(t, 3, second.Metadata.TotalPages)

	beyond, err := Run(context.Background(), a, Request{Page: 9, Limit: 2, SortField: "tag"})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
}

func TestRunSearch(t *testing.T) {
	src := &sliceSource{items: []item{{Name: "Bridge"}, {Name: "bridge-v2"}, {Name: "token"}}}

	got, err := Run(context.Background(), testAdapter(src), Request{Search: "BRIDGE"})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Metadata.TotalItems)
	assert.Len(t, got.Items, 2)
}

func TestNormalizeRejects(t *testing.T) {
	a := testAdapter(&sliceSource{})

	tests := []struct {
		name string
		req  Request
	}{
		{"negative page", Request{Page: -1}},
		{"limit too large", Request{Limit: MaxLimit + 1}},
		{"negative limit", Request{Limit: -5}},
		{"unknown sort field", Request{SortField: "password"}},
		{"bad direction", Request{SortDirection: "sideways"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Normalize(tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)

			_, err = Run(context.Background(), a, tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func names(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}
