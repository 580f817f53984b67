package services

import "errors"

// Request-level failures, mapped to 400 by the handlers.
var (
	ErrNoFile              = errors.New("no file was sent")
	ErrEmptyFilename       = errors.New("no file selected")
	ErrInvalidFilename     = errors.New("invalid filename")
	ErrExtensionNotAllowed = errors.New("file type not allowed")
	ErrInvalidChunk        = errors.New("invalid chunk parameters")
)

// ErrNotFound maps to 404 on download and delete.
var ErrNotFound = errors.New("file not found")

// IsBadRequest reports whether err is a client-input failure.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrNoFile) ||
		errors.Is(err, ErrEmptyFilename) ||
		errors.Is(err, ErrInvalidFilename) ||
		errors.Is(err, ErrExtensionNotAllowed) ||
		errors.Is(err, ErrInvalidChunk)
}
