package models

import (
	"fmt"
	"strings"
	"time"
)

// StoredFile represents one successfully persisted image upload
type StoredFile struct {
	Category     string    `json:"category"`
	Filename     string    `json:"filename"`      // generated, unique within the category
	OriginalName string    `json:"original_name"` // untrusted, display only
	MediaType    string    `json:"media_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Checksum     string    `json:"checksum"` // hex BLAKE2b-256 of the stored bytes
	CreatedAt    time.Time `json:"created_at"`
}

// URL returns the public retrieval path of the file
func (f StoredFile) URL() string {
	return ImageURL(f.Category, f.Filename)
}

// ImageURL builds the retrieval path for a category and filename
func ImageURL(category, filename string) string {
	return fmt.Sprintf("/uploads/%s/%s", category, filename)
}

// CategoryListing groups the catalog entries of one category
type CategoryListing struct {
	Name  string       `json:"name"`
	Files []StoredFile `json:"files"`
}

// CheckPathSegment rejects anything that is not a single plain path element.
// Categories and generated filenames both become directory entries on disk.
func CheckPathSegment(kind, s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0) {
		return fmt.Errorf("invalid %s %q", kind, s)
	}
	return nil
}
