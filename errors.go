package studyplan

import "errors"

var (
	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("studyplan: unsupported document format")

	// ErrParsingFailed is returned when document parsing fails.
	ErrParsingFailed = errors.New("studyplan: parsing failed")

	// ErrEmptyDocument is returned when a document yields no text at all.
	ErrEmptyDocument = errors.New("studyplan: no text extracted from document")

	// ErrSessionNotFound is returned when a session ID does not exist or
	// has expired.
	ErrSessionNotFound = errors.New("studyplan: session not found")

	// ErrLLMUnavailable is returned when LLM extraction is requested but no
	// chat provider is configured.
	ErrLLMUnavailable = errors.New("studyplan: LLM provider unavailable")

	// ErrLLMRequestFailed is returned when an LLM request fails.
	ErrLLMRequestFailed = errors.New("studyplan: LLM request failed")

	// ErrStoreClosed is returned when operating on a closed engine.
	ErrStoreClosed = errors.New("studyplan: store is closed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("studyplan: invalid configuration")
)
