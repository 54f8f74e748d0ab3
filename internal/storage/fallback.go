package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/utleieskade/backend/internal/logger"
)

// FallbackStore writes to and reads from primary, falling back to the local disk.
// primary may be nil, in which case only local disk is used.
type FallbackStore struct {
	primary Store
	local   *LocalStore
}

func NewFallbackStore(primary Store, local *LocalStore) *FallbackStore {
	return &FallbackStore{primary: primary, local: local}
}

func (s *FallbackStore) Name() string {
	if s.primary == nil {
		return s.local.Name()
	}
	return s.primary.Name() + "+" + s.local.Name()
}

func (s *FallbackStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.primary == nil {
		return s.local.Put(ctx, key, r, size, contentType)
	}

	// Buffer so the body can be replayed to the local disk.
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := s.primary.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		logger.WithError(err, "storage").Warn("Object storage upload failed, writing to local disk")
		return s.local.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	}
	return nil
}

func (s *FallbackStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	clean := SanitizeKey(key)
	if clean == "" {
		return nil, "", ErrNotFound
	}
	if s.primary != nil {
		body, contentType, err := s.primary.Get(ctx, clean)
		if err == nil {
			return body, contentType, nil
		}
		if err != ErrNotFound {
			logger.WithError(err, "storage").Warn("Object storage read failed, trying local disk")
		}
	}
	return s.local.Get(ctx, clean)
}
