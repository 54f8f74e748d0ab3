package services

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/storage"
)

// MaxUploadSize is the largest accepted upload.
const MaxUploadSize = 10 << 20

var allowedUploadExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
	".pdf":  true,
}

type FileService struct {
	store   storage.Store
	baseURL string
}

func NewFileService(store storage.Store, baseURL string) *FileService {
	return &FileService{store: store, baseURL: strings.TrimRight(baseURL, "/")}
}

type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Upload stores a multipart file under <yyyy>/<mm>/<uuid><ext>.
func (fs *FileService) Upload(ctx context.Context, userID string, header *multipart.FileHeader) (*UploadResult, error) {
	if header.Size > MaxUploadSize {
		return nil, apperrors.NewFieldError("file", "File exceeds the 10 MB limit")
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExt[ext] {
		return nil, apperrors.NewFieldError("file", "Only images and PDF files are accepted")
	}

	file, err := header.Open()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read upload", err)
	}
	defer file.Close()

	now := time.Now().UTC()
	key := now.Format("2006/01") + "/" + uuid.NewString() + ext
	contentType := storage.ContentTypeFor(ext)

	if err := fs.store.Put(ctx, key, io.LimitReader(file, MaxUploadSize), header.Size, contentType); err != nil {
		return nil, apperrors.NewInternalError("failed to store file", err)
	}

	logger.WithUser(userID).WithFields(map[string]interface{}{
		"key":   key,
		"size":  header.Size,
		"store": fs.store.Name(),
	}).Info("File uploaded")

	return &UploadResult{
		Key:         key,
		URL:         fs.baseURL + "/files/" + key,
		ContentType: contentType,
		Size:        header.Size,
	}, nil
}

// Open returns the stored file for a caller-supplied path.
func (fs *FileService) Open(ctx context.Context, rawPath string) (io.ReadCloser, string, error) {
	key := storage.SanitizeKey(rawPath)
	if key == "" {
		return nil, "", apperrors.NewNotFoundError("file not found")
	}
	body, contentType, err := fs.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", apperrors.NewNotFoundError("file not found")
	}
	if err != nil {
		return nil, "", apperrors.NewInternalError("failed to read file", err)
	}
	if contentType == "" {
		contentType = storage.ContentTypeFor(filepath.Ext(key))
	}
	return body, contentType, nil
}
