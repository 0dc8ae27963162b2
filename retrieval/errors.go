package retrieval

import "errors"

var (
	// ErrInvalidConfig signals malformed retrieval configuration or filter input.
	ErrInvalidConfig = errors.New("invalid retrieval configuration")
	// ErrInvalidResult signals a search result without a usable content payload.
	ErrInvalidResult = errors.New("invalid search result")
	// ErrClientInit signals that the remote client could not be constructed.
	ErrClientInit = errors.New("client initialization failed")
	// ErrUpstream signals a retrieval provider failure.
	ErrUpstream = errors.New("retrieval provider error")
)
