package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/middleware"
	"github.com/utleieskade/backend/internal/services"
)

type FileController struct {
	files *services.FileService
}

func NewFileController(files *services.FileService) *FileController {
	return &FileController{files: files}
}

func (fc *FileController) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxUploadSize+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperrors.NewFieldError("file", "A file is required (max 10 MB)"))
		return
	}
	result, err := fc.files.Upload(c.Request.Context(), middleware.CurrentUserID(c), header)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "File uploaded", result)
}

// Serve streams a stored file. The wildcard path is sanitised by the service.
func (fc *FileController) Serve(c *gin.Context) {
	body, contentType, err := fc.files.Open(c.Request.Context(), c.Param("path"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, max-age=3600")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		_ = c.Error(err)
	}
}
