package domain

import "io"

// UploadFile is a raw file handed to the upload collaborator.
type UploadFile struct {
	// Name is the original filename.
	Name string

	// Size is the byte size, used for validation before reading.
	Size int64

	// Content is the file body.
	Content io.Reader
}
