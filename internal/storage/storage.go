// Package storage keeps uploaded files in object storage with a local-disk fallback.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var ErrNotFound = errors.New("file not found")

// Store is a flat key/value file store.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Name() string
}

// SanitizeKey normalises a caller-supplied path into a relative key that
// cannot climb out of the storage root. Empty result means the path was unusable.
func SanitizeKey(raw string) string {
	raw = strings.ReplaceAll(raw, "\\", "/")
	raw = strings.ReplaceAll(raw, "\x00", "")

	var parts []string
	for _, seg := range strings.Split(raw, "/") {
		switch seg {
		case "", ".", "..":
			continue
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return ""
	}
	return path.Clean(strings.Join(parts, "/"))
}

// ContentTypeFor maps an extension to a MIME type for the file types we accept.
func ContentTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
