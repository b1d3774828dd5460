package storage

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"gallery-backend/config"
	"gallery-backend/models"

	"github.com/google/uuid"
)

// Storage interface for image byte storage, keyed by category and generated filename
type Storage interface {
	// Upload stores data under category/filename and returns the number of bytes written.
	// Nothing is left behind when it fails.
	Upload(ctx context.Context, category, filename string, data io.Reader) (int64, error)

	// Download opens a stored file and returns its size
	Download(ctx context.Context, category, filename string) (io.ReadCloser, int64, error)

	// List returns the files stored for a category, oldest first
	List(ctx context.Context, category string) ([]ObjectInfo, error)

	// Delete removes a stored file
	Delete(ctx context.Context, category, filename string) error
}

// ObjectInfo describes one stored file
type ObjectInfo struct {
	Category string
	Filename string
	Size     int64
	ModTime  time.Time
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal  StorageType = "local"
	StorageTypeMemory StorageType = "memory"
)

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg config.StorageConfig) (Storage, error) {
	switch StorageType(cfg.Type) {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeMemory:
		return NewMemoryStorage(cfg.MemoryMaxBytes), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// GenerateFilename returns a collision-resistant name: creation time in
// milliseconds, a random uuid and the given extension. The user supplied name
// never takes part.
func GenerateFilename(ext string) string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.NewString() + ext
}

// checkSegment rejects anything that is not a single plain path element
func checkSegment(kind, s string) error {
	return models.CheckPathSegment(kind, s)
}

func checkKey(category, filename string) error {
	if err := checkSegment("category", category); err != nil {
		return err
	}
	return checkSegment("filename", filename)
}
