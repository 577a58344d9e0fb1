package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
	ErrNotReady = errors.New("review is not in a terminal state yet")
)

var (
	ErrEmptySource   = errors.New("source text cannot be empty")
	ErrStageConflict = errors.New("stage result already recorded")
	ErrLanguageIsSet = errors.New("detected language already set")
	ErrRunNotFound   = errors.New("run not found")
)

var (
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	ErrModelUnavailable     = errors.New("model unavailable")
	ErrMalformedAgentOutput = errors.New("malformed agent output")
	ErrStageTimeout         = errors.New("stage timed out")
)

var (
	ErrEmptyDocument    = errors.New("document text cannot be empty")
	ErrMissingCategory  = errors.New("document metadata must include a category")
	ErrDocumentNotFound = errors.New("document not found")
	ErrStoreClosed      = errors.New("knowledge store is closed")
)
