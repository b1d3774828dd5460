package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gallery-backend/models"
)

const tempPrefix = ".upload-"

// LocalStorage implements Storage interface for local filesystem.
// Layout: {basePath}/{category}/{filename}
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrDirectoryCreate, basePath, err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// BasePath returns the root directory of the storage
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// Upload writes data to a temp file in the category directory and renames it
// into place once every byte is on disk.
func (s *LocalStorage) Upload(ctx context.Context, category, filename string, data io.Reader) (int64, error) {
	if err := checkKey(category, filename); err != nil {
		return 0, fmt.Errorf("%w: %w", models.ErrWrite, err)
	}

	dir := filepath.Join(s.basePath, category)
	// MkdirAll is a no-op for an existing directory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", models.ErrDirectoryCreate, dir, err)
	}

	fullPath := filepath.Join(dir, filename)
	if _, err := os.Lstat(fullPath); err == nil {
		return 0, fmt.Errorf("%w: %s already exists", models.ErrWrite, fullPath)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("%w: create temp file: %w", models.ErrWrite, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	written, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: data})
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("%w: %w", models.ErrWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, fmt.Errorf("%w: sync: %w", models.ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: close: %w", models.ErrWrite, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: chmod: %w", models.ErrWrite, err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: rename: %w", models.ErrWrite, err)
	}

	return written, nil
}

// Download retrieves a file from local storage
func (s *LocalStorage) Download(ctx context.Context, category, filename string) (io.ReadCloser, int64, error) {
	if err := checkKey(category, filename); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", models.ErrNotFound, err)
	}
	fullPath := filepath.Join(s.basePath, category, filename)

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s/%s", models.ErrNotFound, category, filename)
		}
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("failed to stat file: %w", err)
	}

	return file, info.Size(), nil
}

// List returns the regular files of a category directory, oldest first.
// A missing directory is an empty category.
func (s *LocalStorage) List(ctx context.Context, category string) ([]ObjectInfo, error) {
	if err := checkSegment("category", category); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.basePath, category))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []ObjectInfo{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", category, err)
	}

	objects := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		objects = append(objects, ObjectInfo{
			Category: category,
			Filename: entry.Name(),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	sortObjects(objects)

	return objects, nil
}

// Delete removes a file from local storage
func (s *LocalStorage) Delete(ctx context.Context, category, filename string) error {
	if err := checkKey(category, filename); err != nil {
		return err
	}
	fullPath := filepath.Join(s.basePath, category, filename)

	err := os.Remove(fullPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func sortObjects(objects []ObjectInfo) {
	sort.Slice(objects, func(i, j int) bool {
		if !objects[i].ModTime.Equal(objects[j].ModTime) {
			return objects[i].ModTime.Before(objects[j].ModTime)
		}
		return objects[i].Filename < objects[j].Filename
	})
}

// ctxReader stops a copy once the request context is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
