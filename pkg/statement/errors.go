package statement

import "errors"

var (
	// ErrUnsupportedFormat means the file is not CSV, markdown, or
	// PDF-extracted text. The whole upload fails.
	ErrUnsupportedFormat = errors.New("unsupported statement format")

	// ErrNoRows means the file parsed but not a single usable transaction row
	// was recovered.
	ErrNoRows = errors.New("no usable transaction rows")

	// ErrFileTooLarge is returned by callers that enforce the upload ceiling
	// before parsing starts.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)
