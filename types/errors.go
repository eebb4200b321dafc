package types

import "errors"

// Error taxonomy. Handlers map these to HTTP status codes; services wrap them
// with fmt.Errorf("...: %w", err) to keep diagnostic detail.
var (
	// ErrUnsupportedFormat is a client error: the uploaded file type is not
	// one we extract from.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtractionFailed marks a decode/render failure during document
	// extraction. Extraction is all-or-nothing per document.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrEmptyQuestionText rejects a raw record whose question_text is
	// absent or empty. The record is dropped; the batch continues.
	ErrEmptyQuestionText = errors.New("missing question_text")

	// ErrMissingReference rejects a record whose subject or topic name is
	// empty. Mirrors the normalizer's drop-record policy.
	ErrMissingReference = errors.New("missing subject or topic name")
)
