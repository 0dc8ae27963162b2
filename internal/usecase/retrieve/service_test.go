package retrieve

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/cloudrag/kbretrieve/retrieval"
)

// --- Mocks ---

type mockClient struct {
	page    retrieval.Page
	err     error
	lastReq retrieval.Request
	calls   int
}

func (m *mockClient) Retrieve(_ context.Context, req retrieval.Request) (retrieval.Page, error) {
	m.calls++
	m.lastReq = req
	return m.page, m.err
}

func textResult(text string, score float64) retrieval.RawResult {
	return retrieval.RawResult{
		"content": map[string]any{"type": "TEXT", "text": text},
		"score":   score,
	}
}

func newService(t *testing.T, client Client, cfg *retrieval.RetrievalConfig, minScore float64) *Service {
	t.Helper()
	svc, err := New(client, "kb-1", cfg, minScore, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

// --- Tests ---

func TestRetrieve_BuildsRequest(t *testing.T) {
	client := &mockClient{}
	vs, err := retrieval.NewVectorSearchConfig(7, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := retrieval.NewRetrievalConfig(vs, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc := newService(t, client, &cfg, 0)

	if _, err := svc.Retrieve(context.Background(), "  what is vector search  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want exactly one remote call", client.calls)
	}
	if client.lastReq.RetrievalQuery.Text != "what is vector search" {
		t.Errorf("query = %q, want trimmed", client.lastReq.RetrievalQuery.Text)
	}
	if client.lastReq.KnowledgeBaseID != "kb-1" {
		t.Errorf("knowledge base id = %q", client.lastReq.KnowledgeBaseID)
	}
	if client.lastReq.Configuration == nil || client.lastReq.Configuration.VectorSearch.NumberOfResults != 7 {
		t.Errorf("configuration not attached: %+v", client.lastReq.Configuration)
	}
}

func TestRetrieve_NilConfigOmitted(t *testing.T) {
	client := &mockClient{}
	svc := newService(t, client, nil, 0)

	if _, err := svc.Retrieve(context.Background(), "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.lastReq.Configuration != nil {
		t.Errorf("Configuration = %+v, want nil", client.lastReq.Configuration)
	}
}

func TestRetrieve_DecodesInOrder(t *testing.T) {
	client := &mockClient{page: retrieval.Page{
		RetrievalResults: []retrieval.RawResult{
			textResult("first", 0.9),
			textResult("second", 0.8),
			textResult("third", 0.7),
		},
	}}
	svc := newService(t, client, nil, 0)

	docs, err := svc.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("len = %d", len(docs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if *docs[i].Content != want {
			t.Errorf("docs[%d] = %q, want %q", i, *docs[i].Content, want)
		}
	}
}

func TestRetrieve_AppliesScoreFilter(t *testing.T) {
	client := &mockClient{page: retrieval.Page{
		RetrievalResults: []retrieval.RawResult{
			textResult("keep", 0.9),
			textResult("drop", 0.2),
		},
	}}
	svc := newService(t, client, nil, 0.5)

	docs, err := svc.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || *docs[0].Content != "keep" {
		t.Errorf("docs = %+v", docs)
	}
}

func TestRetrieve_FailFastOnInvalidResult(t *testing.T) {
	client := &mockClient{page: retrieval.Page{
		RetrievalResults: []retrieval.RawResult{
			textResult("good", 0.9),
			{"score": 0.5}, // no content
		},
	}}
	svc := newService(t, client, nil, 0)

	_, err := svc.Retrieve(context.Background(), "q")
	if !errors.Is(err, retrieval.ErrInvalidResult) {
		t.Fatalf("expected ErrInvalidResult, got %v", err)
	}
}

func TestRetrieve_SkipInvalidResults(t *testing.T) {
	client := &mockClient{page: retrieval.Page{
		RetrievalResults: []retrieval.RawResult{
			textResult("good", 0.9),
			{"score": 0.5}, // no content
			textResult("also good", 0.8),
		},
	}}
	svc := newService(t, client, nil, 0).WithSkipInvalidResults()

	docs, err := svc.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d, want invalid result skipped", len(docs))
	}
	if *docs[0].Content != "good" || *docs[1].Content != "also good" {
		t.Errorf("docs out of order: %+v", docs)
	}
}

func TestRetrieve_ClientErrorPassesThrough(t *testing.T) {
	wantErr := errors.New("connection reset")
	client := &mockClient{err: wantErr}
	svc := newService(t, client, nil, 0)

	_, err := svc.Retrieve(context.Background(), "q")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}

func TestRetrievePage_ReturnsNextToken(t *testing.T) {
	client := &mockClient{page: retrieval.Page{
		RetrievalResults: []retrieval.RawResult{textResult("a", 0.9)},
		NextToken:        "token-2",
	}}
	svc := newService(t, client, nil, 0)

	docs, token, err := svc.RetrievePage(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("len = %d", len(docs))
	}
	if token != "token-2" {
		t.Errorf("token = %q", token)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, the service must not follow the token", client.calls)
	}
}

func TestNew_Invalid(t *testing.T) {
	client := &mockClient{}
	tests := []struct {
		name     string
		client   Client
		kbID     string
		minScore float64
	}{
		{"nil client", nil, "kb-1", 0},
		{"empty kb id", client, "", 0},
		{"min score below range", client, "kb-1", -0.1},
		{"min score above range", client, "kb-1", 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.client, tt.kbID, nil, tt.minScore, nil)
			if !errors.Is(err, retrieval.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	bad := &retrieval.RetrievalConfig{
		VectorSearch: retrieval.VectorSearchConfig{NumberOfResults: -2},
	}
	_, err := New(&mockClient{}, "kb-1", bad, 0, nil)
	if !errors.Is(err, retrieval.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
