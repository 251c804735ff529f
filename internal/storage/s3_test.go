package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orangehats/orangehats/internal/config"
)

func testStorageConfig() config.StorageConfig {
	return config.StorageConfig{
		Region:          "us-east-1",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		Bucket:          "orange-hats",
	}
}

func TestNewS3StoreMissingConfig(t *testing.T) {
	cfg := testStorageConfig()
	cfg.Bucket = ""
	cfg.SecretAccessKey = ""

	_, err := NewS3Store(context.Background(), cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvBucket)
	assert.Contains(t, err.Error(), config.EnvSecretAccessKey)
}

func TestS3StoreURL(t *testing.T) {
	s, err := NewS3Store(context.Background(), testStorageConfig(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://orange-hats.s3.us-east-1.amazonaws.com/audits/abc123/report.pdf",
		s.URL("audits/abc123/report.pdf"))

	cfg := testStorageConfig()
	cfg.Endpoint = "http://localhost:9000/"
	cfg.UsePathStyle = true
	s, err = NewS3Store(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/orange-hats/tools/t1/logo.png", s.URL("tools/t1/logo.png"))
}

func TestS3StorePresign(t *testing.T) {
	s, err := NewS3Store(context.Background(), testStorageConfig(), testLogger())
	require.NoError(t, err)

	raw, err := s.PresignGet(context.Background(), "audits/abc123/report.pdf", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(u.Path, "audits/abc123/report.pdf"))
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	raw, err = s.PresignPut(context.Background(), "temp/report.pdf", "application/pdf", time.Hour)
	require.NoError(t, err)
	u, err = url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &s3types.NoSuchKey{}, true},
		{"head not found", fmt.Errorf("head: %w", &s3types.NotFound{}), true},
		{"generic api error", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFoundError(tt.err))
		})
	}
}
