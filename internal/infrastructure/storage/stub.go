package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	appqueue "github.com/clinic/backend/internal/application/queue"
)

var _ appqueue.ResultStorage = (*StubResultStorage)(nil)

// StubResultStorage hands out fake links for local development and tests.
// Nothing is stored behind them.
type StubResultStorage struct {
	BaseURL string
	Now     func() time.Time
}

// NewStubResultStorage creates a stub rooted at baseURL
func NewStubResultStorage(baseURL string) *StubResultStorage {
	if baseURL == "" {
		baseURL = "https://storage.example.com"
	}
	return &StubResultStorage{BaseURL: strings.TrimRight(baseURL, "/"), Now: time.Now}
}

// GenerateUploadURL returns a stub upload link
func (s *StubResultStorage) GenerateUploadURL(_ context.Context, storageKey, _ string, expiresIn time.Duration) (string, time.Time, error) {
	return s.link("upload", storageKey, expiresIn)
}

// GenerateDownloadURL returns a stub download link
func (s *StubResultStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	return s.link("download", storageKey, expiresIn)
}

func (s *StubResultStorage) link(action, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = DefaultPresignExpiration
	}
	expiresAt := s.Now().Add(expiresIn)
	q := url.Values{"expires": {expiresAt.UTC().Format(time.RFC3339)}}
	return s.BaseURL + "/" + action + "/" + storageKey + "?" + q.Encode(), expiresAt, nil
}
