package asset

import "errors"

var (
	// ErrValidation is matched by every upload rejection. Callers map it to a 4xx response.
	ErrValidation = errors.New("upload rejected")

	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrEmptyUpload          = errors.New("empty upload")
	ErrUnknownClass         = errors.New("unknown asset class")

	// ErrUploadFailed indicates the remote store did not confirm an upload.
	ErrUploadFailed = errors.New("upload failed")

	// ErrDeletionFailed is only ever logged; it never aborts the operation that triggered the deletion.
	ErrDeletionFailed = errors.New("deletion failed")

	// ErrHandleDerivation indicates a url did not have the shape the resolver understands.
	ErrHandleDerivation = errors.New("handle could not be derived")
)
