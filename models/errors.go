package models

import (
	"errors"
	"net/http"
)

// Upload and retrieval failures. Callers wrap these with context and match
// them with errors.Is.
var (
	ErrUnknownCategory      = errors.New("unknown category")
	ErrNoFileUploaded       = errors.New("no file uploaded")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrDirectoryCreate      = errors.New("failed to create directory")
	ErrWrite                = errors.New("failed to write file")
	ErrNotFound             = errors.New("not found")
	ErrDuplicateFile        = errors.New("file already recorded")
)

// ErrorKind is the machine readable classification of an error
type ErrorKind struct {
	Code   string
	Status int
}

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrUnknownCategory, ErrorKind{"UNKNOWN_CATEGORY", http.StatusBadRequest}},
	{ErrNoFileUploaded, ErrorKind{"NO_FILE_UPLOADED", http.StatusBadRequest}},
	{ErrUnsupportedMediaType, ErrorKind{"UNSUPPORTED_MEDIA_TYPE", http.StatusBadRequest}},
	{ErrPayloadTooLarge, ErrorKind{"PAYLOAD_TOO_LARGE", http.StatusBadRequest}},
	{ErrDirectoryCreate, ErrorKind{"DIRECTORY_CREATE_ERROR", http.StatusInternalServerError}},
	{ErrWrite, ErrorKind{"WRITE_ERROR", http.StatusInternalServerError}},
	{ErrNotFound, ErrorKind{"NOT_FOUND", http.StatusNotFound}},
	{ErrDuplicateFile, ErrorKind{"DUPLICATE_FILE", http.StatusInternalServerError}},
}

// InternalError is the kind of every error outside the taxonomy
var InternalError = ErrorKind{Code: "INTERNAL_ERROR", Status: http.StatusInternalServerError}

// KindOf classifies err. Client payload problems map to 400, filesystem
// problems to 500.
func KindOf(err error) ErrorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return InternalError
}

// IsClientError reports whether err was caused by the request itself
func IsClientError(err error) bool {
	return KindOf(err).Status < http.StatusInternalServerError
}
