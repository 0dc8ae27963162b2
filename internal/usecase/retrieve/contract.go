package retrieve

import (
	"context"

	"github.com/cloudrag/kbretrieve/retrieval"
)

// Client executes one retrieval round-trip against the remote knowledge
// base service. Implementations own transport, auth, timeout, and retry
// policy; the service issues a single call per Retrieve.
type Client interface {
	Retrieve(ctx context.Context, req retrieval.Request) (retrieval.Page, error)
}
