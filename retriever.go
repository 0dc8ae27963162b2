package kbretrieve

import (
	"context"
	"fmt"

	"github.com/cloudrag/kbretrieve/internal/transport/awskb"
	"github.com/cloudrag/kbretrieve/internal/usecase/retrieve"
	"github.com/cloudrag/kbretrieve/retrieval"
)

// Client performs one retrieval round trip against a knowledge base
// service. The default implementation talks to the AWS Retrieve API;
// tests and alternative backends can inject their own with WithClient.
type Client interface {
	Retrieve(ctx context.Context, req retrieval.Request) (retrieval.Page, error)
}

// Retriever retrieves documents from one knowledge base.
type Retriever struct {
	service *retrieve.Service
}

// New creates a Retriever bound to the given knowledge base. Unless a
// client is injected with WithClient, an AWS-backed client is created,
// resolving credentials and region from the environment.
func New(ctx context.Context, knowledgeBaseID string, opts ...Option) (*Retriever, error) {
	cfg := &retrieverConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.config != nil && cfg.configMap != nil {
		return nil, fmt.Errorf("kbretrieve: %w: WithRetrievalConfig and WithRetrievalConfigMap are mutually exclusive",
			retrieval.ErrInvalidConfig)
	}

	retrievalCfg := cfg.config
	if cfg.configMap != nil {
		parsed, err := retrieval.RetrievalConfigFromMap(cfg.configMap)
		if err != nil {
			return nil, fmt.Errorf("kbretrieve: %w", err)
		}
		retrievalCfg = &parsed
	}

	client := cfg.client
	if client == nil {
		c, err := awskb.New(ctx, awskb.Config{
			Region:         cfg.region,
			Profile:        cfg.profile,
			EndpointURL:    cfg.endpointURL,
			ConnectTimeout: cfg.connectTimeout,
			ReadTimeout:    cfg.readTimeout,
			Logger:         cfg.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("kbretrieve: %w", err)
		}
		client = c
	}

	service, err := retrieve.New(client, knowledgeBaseID, retrievalCfg, cfg.minScore, cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("kbretrieve: %w", err)
	}
	if cfg.skipInvalid {
		service = service.WithSkipInvalidResults()
	}

	return &Retriever{service: service}, nil
}

// Retrieve returns documents relevant to the query, most relevant first.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]retrieval.Document, error) {
	docs, err := r.service.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("kbretrieve: %w", err)
	}
	return docs, nil
}

// RetrievePage returns one page of documents plus the continuation token
// for the next page; the token is empty on the last page. To continue,
// create a Retriever whose retrieval configuration carries the token.
func (r *Retriever) RetrievePage(ctx context.Context, query string) ([]retrieval.Document, string, error) {
	docs, token, err := r.service.RetrievePage(ctx, query)
	if err != nil {
		return nil, "", fmt.Errorf("kbretrieve: %w", err)
	}
	return docs, token, nil
}
