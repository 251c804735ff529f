package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orangehats/orangehats/internal/query"
	"github.com/orangehats/orangehats/internal/storage"
)

func TestToolCreateRelocatesImage(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.blobs.objects["temp/logo.png"] = true

	tool, err := env.tools.Create(ctx, ToolInput{Name: "Clarinet", CreatedBy: "Hiro", ImageKey: "temp/logo.png"})
	require.NoError(t, err)

	want := "tools/" + tool.ID + "/logo.png"
	assert.Equal(t, want, tool.ImageKey)
	assert.Equal(t, bucketURL+want, tool.ImageURL)
	assert.False(t, env.blobs.has("temp/logo.png"))

	stored, err := env.tools.Get(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, want, stored.ImageKey)
}

func TestToolListSignsImagesPerItem(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for _, in := range []ToolInput{
		{Name: "Alpha", ImageKey: "tools/a/alpha.png"},
		{Name: "Beta", ImageKey: "tools/b/beta.png"},
		{Name: "Gamma"},
	} {
		_, err := env.tools.Create(ctx, in)
		require.NoError(t, err)
	}
	env.blobs.failSign["tools/b/beta.png"] = true

	page, err := env.tools.List(ctx, query.Request{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	assert.Equal(t, "Alpha", page.Items[0].Name)
	require.NotNil(t, page.Items[0].SignedImageURL)
	assert.Equal(t, "https://signed.test/tools/a/alpha.png", *page.Items[0].SignedImageURL)
	assert.Nil(t, page.Items[1].SignedImageURL)
	assert.Nil(t, page.Items[2].SignedImageURL)
}

func TestToolImageURLPropagatesFailures(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tool, err := env.tools.Create(ctx, ToolInput{Name: "Beta", ImageKey: "tools/b/beta.png"})
	require.NoError(t, err)
	env.blobs.failSign["tools/b/beta.png"] = true

	_, err = env.tools.ImageURL(ctx, tool.ID)
	var se *storage.Error
	require.True(t, errors.As(err, &se))
	assert.ErrorIs(t, err, errSign)

	bare, err := env.tools.Create(ctx, ToolInput{Name: "Gamma"})
	require.NoError(t, err)
	_, err = env.tools.ImageURL(ctx, bare.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.tools.ImageURL(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToolUpdateAndDelete(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	tool, err := env.tools.Create(ctx, ToolInput{Name: "Clarinet", Description: "Local devnet"})
	require.NoError(t, err)

	env.blobs.objects["temp/logo.png"] = true
	updated, err := env.tools.Update(ctx, tool.ID, ToolPatch{
		SecurityURL: ptr("https://example.com/security"),
		ImageKey:    ptr("temp/logo.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Clarinet", updated.Name)
	assert.Equal(t, "Local devnet", updated.Description)
	assert.Equal(t, "https://example.com/security", updated.SecurityURL)
	assert.Equal(t, "tools/"+tool.ID+"/logo.png", updated.ImageKey)

	_, err = env.tools.Update(ctx, tool.ID, ToolPatch{SecurityURL: ptr("::")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, env.tools.Delete(ctx, tool.ID))
	assert.ErrorIs(t, env.tools.Delete(ctx, tool.ID), ErrNotFound)
}

func TestToolUploadImage(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	u, err := env.tools.UploadImage(ctx, "new", "logo.svg")
	require.NoError(t, err)
	assert.Equal(t, "temp/logo.svg", u.Key)

	_, err = env.tools.UploadImage(ctx, "missing", "logo.svg")
	assert.ErrorIs(t, err, ErrNotFound)
}
