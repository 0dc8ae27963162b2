// Package httpapi exposes configured knowledge bases over a small JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/cloudrag/kbretrieve/internal/logger"
	"github.com/cloudrag/kbretrieve/internal/version"
	"github.com/cloudrag/kbretrieve/retrieval"
)

// Error codes returned in JSON error responses.
const (
	codeBadRequest           = "bad_request"
	codeValidationFailed     = "validation_failed"
	codeKnowledgeBaseUnknown = "knowledge_base_not_found"
	codeUpstreamError        = "upstream_error"
	codeInternalError        = "internal_error"
)

// DocumentRetriever retrieves one page of documents for a query.
type DocumentRetriever interface {
	RetrievePage(ctx context.Context, query string) ([]retrieval.Document, string, error)
}

// Server routes retrieve requests to named knowledge bases.
type Server struct {
	retrievers map[string]DocumentRetriever
	logger     *zap.Logger
}

// NewServer creates an HTTP API server over the given named retrievers.
func NewServer(retrievers map[string]DocumentRetriever, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{retrievers: retrievers, logger: logger}
}

// Routes registers the server's handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/retrieve", s.handleRetrieve)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

type retrieveRequest struct {
	KnowledgeBase string `json:"knowledgeBase"`
	Query         string `json:"query"`
}

type documentPayload struct {
	Content  *string        `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

type retrieveResponse struct {
	Documents []documentPayload `json:"documents"`
	NextToken string            `json:"nextToken,omitempty"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.KnowledgeBase == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "knowledgeBase is required")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	retriever, ok := s.retrievers[req.KnowledgeBase]
	if !ok {
		writeError(w, http.StatusNotFound, codeKnowledgeBaseUnknown,
			"unknown knowledge base "+strconv.Quote(req.KnowledgeBase))
		return
	}

	docs, nextToken, err := retriever.RetrievePage(r.Context(), req.Query)
	if err != nil {
		s.handleRetrievalError(w, r, req.KnowledgeBase, err)
		return
	}

	resp := retrieveResponse{
		Documents: make([]documentPayload, len(docs)),
		NextToken: nextToken,
	}
	for i, d := range docs {
		resp.Documents[i] = documentPayload{Content: d.Content, Metadata: d.Metadata}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetrievalError(w http.ResponseWriter, r *http.Request, kb string, err error) {
	// Prefer the request-scoped logger (carries request_id).
	log := logpkg.FromContextOr(r.Context(), s.logger)

	switch {
	case errors.Is(err, retrieval.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
	case errors.Is(err, retrieval.ErrInvalidResult), errors.Is(err, retrieval.ErrUpstream):
		log.Error("retrieval failed",
			zap.String("knowledge_base", kb),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, codeUpstreamError, err.Error())
	default:
		log.Error("retrieval failed",
			zap.String("knowledge_base", kb),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
