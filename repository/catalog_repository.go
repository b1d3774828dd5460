package repository

import (
	"context"
	"fmt"
	"sync"

	"gallery-backend/models"
)

// CatalogRepository is the in-memory index from category to its stored files.
// Appends are serialized by the mutex; readers get copies so a concurrent
// append is never seen half done.
type CatalogRepository struct {
	mu      sync.RWMutex
	entries map[string][]models.StoredFile
	index   map[string]map[string]int // category -> filename -> position in entries
}

// NewCatalogRepository creates an empty catalog
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		entries: make(map[string][]models.StoredFile),
		index:   make(map[string]map[string]int),
	}
}

// Record appends a stored file to its category. Call it only after the bytes
// are in storage.
func (r *CatalogRepository) Record(ctx context.Context, file models.StoredFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.index[file.Category]
	if !ok {
		byName = make(map[string]int)
		r.index[file.Category] = byName
	}
	if _, exists := byName[file.Filename]; exists {
		return fmt.Errorf("%w: %s", models.ErrDuplicateFile, file.URL())
	}

	byName[file.Filename] = len(r.entries[file.Category])
	r.entries[file.Category] = append(r.entries[file.Category], file)
	return nil
}

// List returns the files of a category in insertion order. Unknown or empty
// categories yield an empty, non-nil slice.
func (r *CatalogRepository) List(ctx context.Context, category string) []models.StoredFile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listLocked(category)
}

// Find looks a file up by category and filename
func (r *CatalogRepository) Find(ctx context.Context, category, filename string) (*models.StoredFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.index[category][filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, models.ImageURL(category, filename))
	}
	file := r.entries[category][pos]
	return &file, nil
}

// Snapshot lists several categories under a single read lock, in the given order
func (r *CatalogRepository) Snapshot(ctx context.Context, categories []string) []models.CategoryListing {
	r.mu.RLock()
	defer r.mu.RUnlock()

	listings := make([]models.CategoryListing, 0, len(categories))
	for _, category := range categories {
		listings = append(listings, models.CategoryListing{
			Name:  category,
			Files: r.listLocked(category),
		})
	}
	return listings
}

// Len returns the number of files recorded for a category
func (r *CatalogRepository) Len(category string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries[category])
}

func (r *CatalogRepository) listLocked(category string) []models.StoredFile {
	files := make([]models.StoredFile, len(r.entries[category]))
	copy(files, r.entries[category])
	return files
}
