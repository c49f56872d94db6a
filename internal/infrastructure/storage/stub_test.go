package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubResultStorage(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := NewStubResultStorage("http://files.local/")
	s.Now = func() time.Time { return now }

	up, expiresAt, err := s.GenerateUploadURL(ctx, "results/a/b/scan.png", "image/png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "http://files.local/upload/results/a/b/scan.png?expires=2026-03-14T09%3A01%3A00Z", up)
	assert.Equal(t, now.Add(time.Minute), expiresAt)

	down, _, err := s.GenerateDownloadURL(ctx, "results/a/b/scan.png", 0)
	require.NoError(t, err)
	assert.Contains(t, down, "http://files.local/download/results/a/b/scan.png?expires=2026-03-14T09%3A15%3A00Z")

	_, _, err = s.GenerateUploadURL(ctx, "", "", 0)
	assert.Error(t, err)
}
