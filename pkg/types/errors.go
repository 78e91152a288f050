package types

import "errors"

// Schema errors.
var (
	ErrSchemaUnavailable = errors.New("schema unavailable")
	ErrUnknownFieldType  = errors.New("unknown field type")
	ErrUnknownField      = errors.New("unknown field")
)

// Form state errors.
var (
	ErrNotNested = errors.New("field is not a nested record list")
	ErrRowIndex  = errors.New("row index out of range")
	ErrCoerce    = errors.New("value does not match field type")
)

// Extraction errors.
var (
	ErrNotDirectPDF = errors.New("not a direct pdf link")
	ErrExtraction   = errors.New("metadata extraction failed")
)

// Publish errors.
var (
	ErrInvalidName = errors.New("dataset name is empty after sanitizing")
)

// Draft store errors.
var (
	ErrDraftNotFound   = errors.New("draft not found")
	ErrInvalidID       = errors.New("invalid id")
	ErrStoreDetached   = errors.New("draft store is detached")
	ErrAlreadyAttached = errors.New("draft store is already attached")
)
