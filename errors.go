package kbretrieve

import "github.com/cloudrag/kbretrieve/retrieval"

// Sentinel errors, re-exported from the retrieval package so callers can
// match with errors.Is without an extra import.
var (
	ErrInvalidConfig = retrieval.ErrInvalidConfig
	ErrInvalidResult = retrieval.ErrInvalidResult
	ErrClientInit    = retrieval.ErrClientInit
	ErrUpstream      = retrieval.ErrUpstream
)
