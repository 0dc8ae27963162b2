package retrieve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloudrag/kbretrieve/retrieval"
)

// Service orchestrates one knowledge base retrieval: request building, the
// remote call, per-result decoding, and confidence filtering. It holds no
// mutable state between calls and is safe for concurrent use.
type Service struct {
	client          Client
	knowledgeBaseID string
	config          *retrieval.RetrievalConfig
	minScore        float64
	skipInvalid     bool
	logger          *zap.Logger
}

// New validates and creates a retrieval service. cfg may be nil (the remote
// API applies its own defaults); minScore must lie in [0, 1].
func New(
	client Client, knowledgeBaseID string,
	cfg *retrieval.RetrievalConfig, minScore float64,
	logger *zap.Logger,
) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", retrieval.ErrInvalidConfig)
	}
	if knowledgeBaseID == "" {
		return nil, fmt.Errorf("%w: knowledge base id is required", retrieval.ErrInvalidConfig)
	}
	if minScore < 0 || minScore > 1 {
		return nil, fmt.Errorf("%w: min score confidence must be within [0, 1], got %v", retrieval.ErrInvalidConfig, minScore)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client:          client,
		knowledgeBaseID: knowledgeBaseID,
		config:          cfg,
		minScore:        minScore,
		logger:          logger,
	}, nil
}

// WithSkipInvalidResults switches decoding from fail-fast to lenient:
// results without a usable content payload are skipped with a warning
// instead of failing the whole call.
func (s *Service) WithSkipInvalidResults() *Service {
	s.skipInvalid = true
	return s
}

// Retrieve runs one retrieval round-trip and returns normalized documents
// in the order the remote API ranked them.
func (s *Service) Retrieve(ctx context.Context, query string) ([]retrieval.Document, error) {
	docs, _, err := s.RetrievePage(ctx, query)
	return docs, err
}

// RetrievePage is Retrieve plus the remote pagination token, empty when the
// knowledge base has no further results. The service never follows the
// token; callers may feed it back through the retrieval config.
func (s *Service) RetrievePage(ctx context.Context, query string) ([]retrieval.Document, string, error) {
	req := retrieval.NewRequest(query, s.knowledgeBaseID, s.config)

	page, err := s.client.Retrieve(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("retrieve: %w", err)
	}

	docs := make([]retrieval.Document, 0, len(page.RetrievalResults))
	for i, raw := range page.RetrievalResults {
		doc, err := retrieval.DecodeResult(raw)
		if err != nil {
			if s.skipInvalid {
				s.logger.Warn("skipping undecodable retrieval result",
					zap.String("knowledge_base_id", s.knowledgeBaseID),
					zap.Int("index", i),
					zap.Error(err),
				)
				continue
			}
			return nil, "", fmt.Errorf("decode result %d: %w", i, err)
		}
		docs = append(docs, doc)
	}

	return retrieval.FilterByScore(docs, s.minScore), page.NextToken, nil
}
