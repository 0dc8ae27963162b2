package retrieval

import "strings"

// Query carries the free-text retrieval query.
type Query struct {
	Text string `json:"text"`
}

// Request is the wire request for one retrieval call.
type Request struct {
	RetrievalQuery  Query            `json:"retrievalQuery"`
	KnowledgeBaseID string           `json:"knowledgeBaseId"`
	Configuration   *RetrievalConfig `json:"retrievalConfiguration,omitempty"`
}

// NewRequest builds a wire request. Leading and trailing whitespace is
// trimmed from the query; an empty query passes through for the remote API
// to reject. A nil config omits retrievalConfiguration entirely so the
// remote API applies its own defaults.
func NewRequest(query, knowledgeBaseID string, cfg *RetrievalConfig) Request {
	return Request{
		RetrievalQuery:  Query{Text: strings.TrimSpace(query)},
		KnowledgeBaseID: knowledgeBaseID,
		Configuration:   cfg,
	}
}
