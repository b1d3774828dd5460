package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"gallery-backend/models"
)

type memoryObject struct {
	data    []byte
	modTime time.Time
}

// MemoryStorage implements Storage interface in process memory.
// Contents are lost when the process exits. Without a cap memory grows with
// every upload, so production setups should set maxBytes.
type MemoryStorage struct {
	mu       sync.RWMutex
	objects  map[string]map[string]memoryObject
	total    int64
	maxBytes int64 // 0 = unlimited
}

// NewMemoryStorage creates a new in-memory storage instance
func NewMemoryStorage(maxBytes int64) *MemoryStorage {
	return &MemoryStorage{
		objects:  make(map[string]map[string]memoryObject),
		maxBytes: maxBytes,
	}
}

// Upload buffers data fully before it becomes visible
func (s *MemoryStorage) Upload(ctx context.Context, category, filename string, data io.Reader) (int64, error) {
	if err := checkKey(category, filename); err != nil {
		return 0, fmt.Errorf("%w: %w", models.ErrWrite, err)
	}

	buf, err := io.ReadAll(&ctxReader{ctx: ctx, r: data})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", models.ErrWrite, err)
	}
	size := int64(len(buf))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 && s.total+size > s.maxBytes {
		return 0, fmt.Errorf("%w: memory storage full (%d of %d bytes used)", models.ErrWrite, s.total, s.maxBytes)
	}
	bucket, ok := s.objects[category]
	if !ok {
		bucket = make(map[string]memoryObject)
		s.objects[category] = bucket
	}
	if _, exists := bucket[filename]; exists {
		return 0, fmt.Errorf("%w: %s/%s already exists", models.ErrWrite, category, filename)
	}
	bucket[filename] = memoryObject{data: buf, modTime: time.Now()}
	s.total += size

	return size, nil
}

// Download returns a reader over the stored buffer
func (s *MemoryStorage) Download(ctx context.Context, category, filename string) (io.ReadCloser, int64, error) {
	s.mu.RLock()
	obj, ok := s.objects[category][filename]
	s.mu.RUnlock()

	if !ok {
		return nil, 0, fmt.Errorf("%w: %s/%s", models.ErrNotFound, category, filename)
	}
	// buffers are never mutated after Upload, sharing is safe
	return io.NopCloser(bytes.NewReader(obj.data)), int64(len(obj.data)), nil
}

// List returns the files of a category, oldest first
func (s *MemoryStorage) List(ctx context.Context, category string) ([]ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects := make([]ObjectInfo, 0, len(s.objects[category]))
	for name, obj := range s.objects[category] {
		objects = append(objects, ObjectInfo{
			Category: category,
			Filename: name,
			Size:     int64(len(obj.data)),
			ModTime:  obj.modTime,
		})
	}
	sortObjects(objects)

	return objects, nil
}

// Delete removes a file and releases its bytes
func (s *MemoryStorage) Delete(ctx context.Context, category, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obj, ok := s.objects[category][filename]; ok {
		s.total -= int64(len(obj.data))
		delete(s.objects[category], filename)
	}
	return nil
}

// UsedBytes reports the bytes currently held
func (s *MemoryStorage) UsedBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}
