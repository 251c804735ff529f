package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Re-Entrancy in sBTC Bridge!", "re-entrancy-in-sbtc-bridge"},
		{"  Hello,   World  ", "hello-world"},
		{"snake_case_title", "snake-case-title"},
		{"--Leading and trailing--", "leading-and-trailing"},
		{"Ünïcödé Tïtle", "unicode-title"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := Slugify(tt.title)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Slugify(got), "slugify must be idempotent")
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	late := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), NormalizeDate(late))

	// 2024-03-15 01:00 in UTC+5 is still the 14th in UTC
	east := time.Date(2024, 3, 15, 1, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))
	assert.Equal(t, "2024-03-14", NormalizeDate(east).Format("2006-01-02"))
}

func TestFileNameAndURL(t *testing.T) {
	at := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-05-my-post.mdx", FileName(at, "my-post"))
	assert.Equal(t, "2024-01-05-odd-slug-.mdx", FileName(at, "odd slug!"))
	assert.Equal(t, "/research/2024/01/05/my-post", PublicURL(at, "my-post"))
}

func TestTokenOf(t *testing.T) {
	tok, ok := tokenOf("2024-03-15-audit-v2.mdx")
	require.True(t, ok)
	assert.Equal(t, "audit-v2", tok)

	for _, name := range []string{"audit.mdx", "2024-13-01-x.mdx", "2024-03-15-x.md", "2024-03-15x.mdx", "2024-03-15-.mdx"} {
		_, ok := tokenOf(name)
		assert.False(t, ok, name)
	}
}

func TestEncodeDecode(t *testing.T) {
	p := Post{
		Title:       "Title: with colon",
		Protocol:    "sBTC",
		PublishedAt: "2024-03-15",
		Slug:        "title-with-colon",
		Content:     "\nstarts with a newline\n---\nnot front matter\n",
	}

	data, err := encode(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "---\n\n")

	got, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeVariants(t *testing.T) {
	got, err := decode([]byte("---\r\ntitle: Windows\r\n---\r\n\r\nbody\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "Windows", got.Title)
	assert.Equal(t, "body\n", got.Content)

	got, err = decode([]byte("---\ntitle: Bare\n---"))
	require.NoError(t, err)
	assert.Equal(t, "Bare", got.Title)
	assert.Equal(t, "", got.Content)

	got, err = decode([]byte("---\n---\n\nonly body"))
	require.NoError(t, err)
	assert.Equal(t, "only body", got.Content)

	_, err = decode([]byte("title: none"))
	assert.Error(t, err)

	_, err = decode([]byte("---\ntitle: open\nbody"))
	assert.Error(t, err)
}
