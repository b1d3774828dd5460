package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"time"

	"gallery-backend/models"
	"gallery-backend/repository"
	"gallery-backend/storage"
	"gallery-backend/validation"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// DefaultMaxUploadBytes applies when no limit is configured
const DefaultMaxUploadBytes = 10_000_000

// ImageService handles business logic for image uploads
type ImageService struct {
	storage        storage.Storage
	catalog        *repository.CatalogRepository
	validator      *validation.Validator
	maxUploadBytes int64
	logger         *zap.Logger
}

// ImageServiceOption is a functional option for ImageService
type ImageServiceOption func(*ImageService)

// WithStorage sets the storage backend
func WithStorage(s storage.Storage) ImageServiceOption {
	return func(svc *ImageService) {
		svc.storage = s
	}
}

// WithCatalog sets the catalog repository
func WithCatalog(catalog *repository.CatalogRepository) ImageServiceOption {
	return func(svc *ImageService) {
		svc.catalog = catalog
	}
}

// WithValidator sets the upload validator
func WithValidator(v *validation.Validator) ImageServiceOption {
	return func(svc *ImageService) {
		svc.validator = v
	}
}

// WithMaxUploadBytes sets the largest accepted file
func WithMaxUploadBytes(n int64) ImageServiceOption {
	return func(svc *ImageService) {
		svc.maxUploadBytes = n
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ImageServiceOption {
	return func(svc *ImageService) {
		svc.logger = logger
	}
}

// NewImageService creates a new image service
func NewImageService(opts ...ImageServiceOption) *ImageService {
	s := &ImageService{
		maxUploadBytes: DefaultMaxUploadBytes,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ImageService) ready() error {
	switch {
	case s.storage == nil:
		return errors.New("storage not set")
	case s.catalog == nil:
		return errors.New("catalog repository not set")
	case s.validator == nil:
		return errors.New("validator not set")
	}
	return nil
}

// MaxUploadBytes returns the configured upload limit
func (s *ImageService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

// UploadImageRequest represents a request to store an uploaded image
type UploadImageRequest struct {
	Category     string
	OriginalName string
	MediaType    string    // as declared by the client
	Size         int64     // declared size, negative when unknown
	Content      io.Reader // nil when the request carried no file
}

// UploadImageResult represents the result of storing an image
type UploadImageResult struct {
	File models.StoredFile
	URL  string
}

// UploadImage validates, stores and catalogs one image. The catalog is only
// touched after the bytes are stored, so a failure at any step leaves no
// entry behind.
func (s *ImageService) UploadImage(ctx context.Context, req UploadImageRequest) (*UploadImageResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if err := s.validator.ValidateCategory(req.Category); err != nil {
		return nil, err
	}
	if req.Content == nil {
		return nil, models.ErrNoFileUploaded
	}
	if err := s.validator.ValidateMediaType(req.MediaType); err != nil {
		return nil, err
	}
	if req.Size > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", models.ErrPayloadTooLarge, req.Size, s.maxUploadBytes)
	}

	head := make([]byte, validation.SniffLen)
	n, err := io.ReadFull(req.Content, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, fmt.Errorf("%w: the file is empty", models.ErrNoFileUploaded)
	}

	mediaType := validation.NormalizeMediaType(req.MediaType)
	if err := s.validator.CheckContent(mediaType, head); err != nil {
		return nil, err
	}

	filename := storage.GenerateFilename(s.validator.Extension(mediaType, req.OriginalName))
	hasher := newChecksum()
	body := io.TeeReader(
		storage.LimitReader(ctx, io.MultiReader(bytes.NewReader(head), req.Content), s.maxUploadBytes),
		hasher,
	)

	written, err := s.storage.Upload(ctx, req.Category, filename, body)
	if err != nil {
		if !models.IsClientError(err) {
			s.logger.Error("failed to store image",
				zap.String("category", req.Category),
				zap.String("filename", filename),
				zap.Error(err),
			)
		}
		return nil, err
	}

	file := models.StoredFile{
		Category:     req.Category,
		Filename:     filename,
		OriginalName: req.OriginalName,
		MediaType:    mediaType,
		SizeBytes:    written,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.catalog.Record(ctx, file); err != nil {
		// the catalog must never miss bytes it points at, nor the other way round
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), req.Category, filename); delErr != nil {
			s.logger.Error("failed to remove uncataloged image",
				zap.String("category", req.Category),
				zap.String("filename", filename),
				zap.Error(delErr),
			)
		}
		s.logger.Error("failed to record image",
			zap.String("category", req.Category),
			zap.String("filename", filename),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("image stored",
		zap.String("category", file.Category),
		zap.String("filename", file.Filename),
		zap.String("media_type", file.MediaType),
		zap.Int64("size", file.SizeBytes),
	)

	return &UploadImageResult{File: file, URL: file.URL()}, nil
}

// GetImageRequest represents a request to read a stored image
type GetImageRequest struct {
	Category string
	Filename string
}

// GetImageResult carries the catalog record and an open reader. The caller
// closes Content.
type GetImageResult struct {
	File    models.StoredFile
	Content io.ReadCloser
	Size    int64
}

// GetImage looks the file up in the catalog and opens its bytes
func (s *ImageService) GetImage(ctx context.Context, req GetImageRequest) (*GetImageResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	file, err := s.catalog.Find(ctx, req.Category, req.Filename)
	if err != nil {
		return nil, err
	}

	content, size, err := s.storage.Download(ctx, req.Category, req.Filename)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to open image",
				zap.String("category", req.Category),
				zap.String("filename", req.Filename),
				zap.Error(err),
			)
		}
		return nil, err
	}

	return &GetImageResult{File: *file, Content: content, Size: size}, nil
}

// Categories returns the closed category set
func (s *ImageService) Categories() []string {
	return s.validator.Categories()
}

// ListImages returns every category with its current files, in configured order
func (s *ImageService) ListImages(ctx context.Context) []models.CategoryListing {
	return s.catalog.Snapshot(ctx, s.validator.Categories())
}

// ListCategory returns the files of one category
func (s *ImageService) ListCategory(ctx context.Context, category string) ([]models.StoredFile, error) {
	if err := s.validator.ValidateCategory(category); err != nil {
		return nil, err
	}
	return s.catalog.List(ctx, category), nil
}

func newChecksum() hash.Hash {
	// New256 only fails for keys longer than 64 bytes
	h, _ := blake2b.New256(nil)
	return h
}
