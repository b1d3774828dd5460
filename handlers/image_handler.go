package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gallery-backend/models"
	"gallery-backend/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// formOverhead is the room left for multipart boundaries and the category field
	formOverhead = 1 << 20
	// multipartMemory is how much of a form is kept in memory before spilling to disk
	multipartMemory = 8 << 20
)

// ImageHandler handles HTTP requests for image uploads and retrieval
type ImageHandler struct {
	imageService *service.ImageService
	fieldName    string
	logger       *zap.Logger
}

// NewImageHandler creates a new image handler
func NewImageHandler(imageService *service.ImageService, fieldName string, logger *zap.Logger) *ImageHandler {
	if fieldName == "" {
		fieldName = "image"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageHandler{
		imageService: imageService,
		fieldName:    fieldName,
		logger:       logger,
	}
}

// ListImages handles GET /
func (h *ImageHandler) ListImages(c *gin.Context) {
	respondData(c, gin.H{
		"categories": h.imageService.ListImages(c.Request.Context()),
	})
}

// ListCategory handles GET /categories/:category
func (h *ImageHandler) ListCategory(c *gin.Context) {
	category := c.Param("category")

	files, err := h.imageService.ListCategory(c.Request.Context(), category)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, models.CategoryListing{Name: category, Files: files})
}

// UploadImage handles POST /upload
func (h *ImageHandler) UploadImage(c *gin.Context) {
	maxBytes := h.imageService.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+formOverhead)

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondError(c, fmt.Errorf("%w: request body exceeds %d bytes", models.ErrPayloadTooLarge, tooLarge.Limit))
			return
		case errors.Is(err, http.ErrNotMultipart):
			// no form at all; the category check below reports it
		default:
			respondError(c, fmt.Errorf("%w: malformed multipart body: %v", models.ErrNoFileUploaded, err))
			return
		}
	}
	if form := c.Request.MultipartForm; form != nil {
		defer form.RemoveAll()
	}

	req := service.UploadImageRequest{
		Category: c.Request.PostFormValue("category"),
		Size:     -1,
	}

	file, header, err := c.Request.FormFile(h.fieldName)
	if err == nil {
		defer file.Close()
		req.OriginalName = header.Filename
		req.MediaType = header.Header.Get("Content-Type")
		req.Size = header.Size
		req.Content = file
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.Warn("failed to open uploaded file", zap.Error(err))
	}

	res, err := h.imageService.UploadImage(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "File uploaded successfully!",
		"filename": res.File.Filename,
		"url":      res.URL,
		"file":     res.File,
	})
}

// GetImage handles GET /uploads/:category/:filename
func (h *ImageHandler) GetImage(c *gin.Context) {
	res, err := h.imageService.GetImage(c.Request.Context(), service.GetImageRequest{
		Category: c.Param("category"),
		Filename: c.Param("filename"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	defer res.Content.Close()

	etag := `"` + res.File.Checksum + `"`
	c.Header("ETag", etag)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Cache-Control", "public, max-age=31536000, immutable")

	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.DataFromReader(http.StatusOK, res.Size, res.File.MediaType, res.Content, nil)
}

// etagMatches applies the weak comparison of If-None-Match against etag.
// The header may list several tags.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// Health handles GET /health
func (h *ImageHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
