// Package validation checks uploads against the closed category registry and
// the image media type allow-list.
package validation

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"gallery-backend/models"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLen is how many leading bytes are inspected by CheckContent
const SniffLen = 3072

// mediaTypeAliases maps non-standard names clients send to the registered type
var mediaTypeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
}

// extraExtensions are accepted spellings beyond the canonical extension
var extraExtensions = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg", ".jpe", ".jfif"},
	"image/tiff": {".tif", ".tiff"},
}

// Validator is immutable after construction and safe for concurrent use
type Validator struct {
	categories  []string
	categorySet map[string]struct{}
	mediaTypes  map[string]struct{}
	sniff       bool
}

// New builds a Validator. Blank entries are ignored.
func New(categories, mediaTypes []string, sniff bool) *Validator {
	v := &Validator{
		categorySet: make(map[string]struct{}),
		mediaTypes:  make(map[string]struct{}),
		sniff:       sniff,
	}
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := v.categorySet[c]; dup {
			continue
		}
		v.categorySet[c] = struct{}{}
		v.categories = append(v.categories, c)
	}
	for _, mt := range mediaTypes {
		if mt = NormalizeMediaType(mt); mt != "" {
			v.mediaTypes[mt] = struct{}{}
		}
	}
	return v
}

// Categories returns the closed category set in configured order
func (v *Validator) Categories() []string {
	out := make([]string, len(v.categories))
	copy(out, v.categories)
	return out
}

// ValidateCategory requires a case-sensitive exact match
func (v *Validator) ValidateCategory(category string) error {
	if _, ok := v.categorySet[category]; !ok {
		return fmt.Errorf("%w: %q, choose from: %s", models.ErrUnknownCategory, category, strings.Join(v.categories, ", "))
	}
	return nil
}

// ValidateMediaType checks the type declared by the client. The declared type
// is not evidence of the content; see CheckContent.
func (v *Validator) ValidateMediaType(declared string) error {
	mt := NormalizeMediaType(declared)
	if _, ok := v.mediaTypes[mt]; !ok {
		return fmt.Errorf("%w: %q, allowed: %s", models.ErrUnsupportedMediaType, declared, strings.Join(v.allowed(), ", "))
	}
	return nil
}

// ValidateUpload runs the category and declared media type checks, in that order
func (v *Validator) ValidateUpload(category, declared string) error {
	if err := v.ValidateCategory(category); err != nil {
		return err
	}
	return v.ValidateMediaType(declared)
}

// CheckContent sniffs the leading bytes of the payload. The detected type must
// be allow-listed and agree with the declared one. It is a no-op when
// sniffing is disabled.
func (v *Validator) CheckContent(declared string, head []byte) error {
	if !v.sniff {
		return nil
	}
	detected, err := v.Detect(head)
	if err != nil {
		return err
	}
	if detected != NormalizeMediaType(declared) {
		return fmt.Errorf("%w: declared %q but content is %q", models.ErrUnsupportedMediaType, declared, detected)
	}
	return nil
}

// Detect returns the allow-listed media type the content's magic bytes match
func (v *Validator) Detect(head []byte) (string, error) {
	detected := mimetype.Detect(head)
	for mt := range v.mediaTypes {
		if detected.Is(mt) {
			return mt, nil
		}
	}
	return "", fmt.Errorf("%w: content is %q", models.ErrUnsupportedMediaType, detected.String())
}

// Extension picks the extension of a generated filename. The original
// extension is kept only when it is a known spelling for the media type.
func (v *Validator) Extension(mediaType, originalName string) string {
	mt := NormalizeMediaType(mediaType)
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if ext != "" {
		for _, candidate := range extensionsFor(mt) {
			if candidate == ext {
				return ext
			}
		}
	}
	return CanonicalExtension(mt)
}

func (v *Validator) allowed() []string {
	out := make([]string, 0, len(v.mediaTypes))
	for mt := range v.mediaTypes {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

// NormalizeMediaType lower-cases, strips parameters and resolves aliases
func NormalizeMediaType(mt string) string {
	mt = strings.TrimSpace(mt)
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	mt = strings.ToLower(mt)
	if alias, ok := mediaTypeAliases[mt]; ok {
		return alias
	}
	return mt
}

// CanonicalExtension returns the usual extension of a media type, or empty
func CanonicalExtension(mediaType string) string {
	if m := mimetype.Lookup(mediaType); m != nil {
		return m.Extension()
	}
	return ""
}

func extensionsFor(mediaType string) []string {
	exts := append([]string{}, extraExtensions[mediaType]...)
	if canonical := CanonicalExtension(mediaType); canonical != "" {
		exts = append(exts, canonical)
	}
	return exts
}
