package pipeline

import "errors"

// Only the fatal error kinds need sentinels here; invalid edits and
// callback failures are represented as non-fatal data (SkipDetail, logged
// callback failures) rather than as errors.
var (
	ErrPayloadInvalid   = errors.New("pipeline: invalid invocation payload")
	ErrNotFound         = errors.New("pipeline: document or primary object not found")
	ErrEngineError      = errors.New("pipeline: pdf engine error")
	ErrStoreError       = errors.New("pipeline: object store error")
	ErrMetaError        = errors.New("pipeline: metadata store error")
	ErrDeadlineExceeded = errors.New("pipeline: deadline exceeded")
	ErrAlreadyInWorkman = errors.New("pipeline: document already in workman and recovery window not elapsed")
)
