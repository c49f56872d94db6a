package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/clinic/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func minioConfig() config.StorageConfig {
	return config.StorageConfig{
		Enabled:           true,
		Endpoint:          "localhost:9000",
		Region:            "us-east-1",
		Bucket:            "clinic-results",
		AccessKeyID:       "minio",
		SecretAccessKey:   "minio-secret",
		UsePathStyle:      true,
		PresignExpiration: 10 * time.Minute,
	}
}

func TestNewS3ResultStorage_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := minioConfig()
		cfg.Bucket = ""
		_, err := NewS3ResultStorage(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half-configured credentials return error", func(t *testing.T) {
		cfg := minioConfig()
		cfg.SecretAccessKey = ""
		_, err := NewS3ResultStorage(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")
	})

	t.Run("invalid endpoint returns error", func(t *testing.T) {
		cfg := minioConfig()
		cfg.Endpoint = "http://"
		_, err := NewS3ResultStorage(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid storage endpoint")
	})

	t.Run("defaults presign expiration", func(t *testing.T) {
		cfg := minioConfig()
		cfg.PresignExpiration = 0
		s, err := NewS3ResultStorage(ctx, cfg, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, DefaultPresignExpiration, s.presignExpiration)
		assert.Equal(t, "clinic-results", s.Bucket())
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	got, err := normalizeEndpoint("minio:9000")
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000", got)

	got, err = normalizeEndpoint("https://s3.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com", got)
}

func TestS3ResultStorage_PresignedURLs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s, err := NewS3ResultStorage(ctx, minioConfig(), WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	key := "results/tenant/order/1f0c-report.pdf"

	t.Run("upload URL is a path-style presigned PUT", func(t *testing.T) {
		raw, expiresAt, err := s.GenerateUploadURL(ctx, key, "application/pdf", 0)
		require.NoError(t, err)
		assert.Equal(t, now.Add(10*time.Minute), expiresAt)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "localhost:9000", u.Host)
		assert.Equal(t, "/clinic-results/"+key, u.Path)
		assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
		assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
		assert.Contains(t, u.Query().Get("X-Amz-Credential"), "minio/")
	})

	t.Run("download URL honours an explicit expiry", func(t *testing.T) {
		raw, expiresAt, err := s.GenerateDownloadURL(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Minute), expiresAt)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "/clinic-results/"+key, u.Path)
		assert.Equal(t, "60", u.Query().Get("X-Amz-Expires"))
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		_, _, err := s.GenerateUploadURL(ctx, "", "", 0)
		assert.Error(t, err)
		_, _, err = s.GenerateDownloadURL(ctx, "", 0)
		assert.Error(t, err)
	})
}
