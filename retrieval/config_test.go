package retrieval

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func marshalToMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestRetrievalConfig_SerializeOmitsUnset(t *testing.T) {
	vs, err := NewVectorSearchConfig(8, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := NewRetrievalConfig(vs, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := marshalToMap(t, cfg)
	if len(m) != 1 {
		t.Fatalf("expected only vectorSearchConfiguration, got %v", m)
	}
	inner, ok := m["vectorSearchConfiguration"].(map[string]any)
	if !ok {
		t.Fatalf("vectorSearchConfiguration missing: %v", m)
	}
	if len(inner) != 1 {
		t.Fatalf("expected only numberOfResults, got %v", inner)
	}
	if inner["numberOfResults"] != float64(8) {
		t.Errorf("numberOfResults = %v", inner["numberOfResults"])
	}
}

func TestRetrievalConfig_SerializeFullForm(t *testing.T) {
	vs, err := NewVectorSearchConfig(10, Equals("team", "infra"), SearchTypeSemantic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := NewRetrievalConfig(vs, "token-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m := marshalToMap(t, cfg)
	if m["nextToken"] != "token-1" {
		t.Errorf("nextToken = %v", m["nextToken"])
	}
	inner := m["vectorSearchConfiguration"].(map[string]any)
	if inner["overrideSearchType"] != "SEMANTIC" {
		t.Errorf("overrideSearchType = %v", inner["overrideSearchType"])
	}
	filter, ok := inner["filter"].(map[string]any)
	if !ok {
		t.Fatalf("filter missing: %v", inner)
	}
	if _, ok := filter["equals"]; !ok {
		t.Errorf("filter = %v", filter)
	}
}

func TestNewVectorSearchConfig_DefaultsNumberOfResults(t *testing.T) {
	vs, err := NewVectorSearchConfig(0, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vs.NumberOfResults != DefaultNumberOfResults {
		t.Errorf("NumberOfResults = %d", vs.NumberOfResults)
	}
}

func TestNewVectorSearchConfig_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		filter   *SearchFilter
		override SearchType
	}{
		{"negative results", -1, nil, ""},
		{"bad override", 4, nil, "KEYWORD"},
		{"bad filter", 4, &SearchFilter{Equals: Operand{"a": 1}, NotEquals: Operand{"b": 2}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVectorSearchConfig(tt.n, tt.filter, tt.override)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestRetrievalConfigFromMap_PreservesUnknownKeys(t *testing.T) {
	cfg, err := RetrievalConfigFromMap(map[string]any{
		"vectorSearchConfiguration": map[string]any{
			"numberOfResults":     6,
			"rerankingConfiguration": map[string]any{"type": "BEDROCK"},
		},
		"nextToken":     "abc",
		"guardrailHint": "strict",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NextToken != "abc" {
		t.Errorf("NextToken = %q", cfg.NextToken)
	}
	if cfg.Extra["guardrailHint"] != "strict" {
		t.Errorf("Extra = %v", cfg.Extra)
	}
	if _, ok := cfg.VectorSearch.Extra["rerankingConfiguration"]; !ok {
		t.Errorf("vector search Extra = %v", cfg.VectorSearch.Extra)
	}

	// Unknown keys must survive serialization verbatim.
	m := marshalToMap(t, cfg)
	if m["guardrailHint"] != "strict" {
		t.Errorf("serialized form lost pass-through key: %v", m)
	}
	inner := m["vectorSearchConfiguration"].(map[string]any)
	if _, ok := inner["rerankingConfiguration"]; !ok {
		t.Errorf("serialized form lost nested pass-through key: %v", inner)
	}
}

func TestRetrievalConfigFromMap_Invalid(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]any
	}{
		{"missing vector search", map[string]any{"nextToken": "x"}},
		{"vector search not mapping", map[string]any{"vectorSearchConfiguration": 3}},
		{"non-integer results", map[string]any{
			"vectorSearchConfiguration": map[string]any{"numberOfResults": 2.5},
		}},
		{"zero results", map[string]any{
			"vectorSearchConfiguration": map[string]any{"numberOfResults": 0},
		}},
		{"bad search type", map[string]any{
			"vectorSearchConfiguration": map[string]any{"overrideSearchType": "KEYWORD"},
		}},
		{"bad token type", map[string]any{
			"vectorSearchConfiguration": map[string]any{"numberOfResults": 4},
			"nextToken":                 7,
		}},
		{"unknown filter operator", map[string]any{
			"vectorSearchConfiguration": map[string]any{
				"filter": map[string]any{"matches": map[string]any{"a": 1}},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RetrievalConfigFromMap(tt.m)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestRetrievalConfigFromMap_FilterAliases(t *testing.T) {
	cfg, err := RetrievalConfigFromMap(map[string]any{
		"vectorSearchConfiguration": map[string]any{
			"filter": map[string]any{
				"in": map[string]any{"team": []any{"infra", "data"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.VectorSearch.Filter.InSet) != 1 {
		t.Fatalf("alias not mapped to InSet: %+v", cfg.VectorSearch.Filter)
	}
}

func TestRetrievalConfig_JSONRoundTrip(t *testing.T) {
	src := map[string]any{
		"vectorSearchConfiguration": map[string]any{
			"numberOfResults": float64(3),
			"filter":          map[string]any{"notIn": map[string]any{"env": []any{"dev"}}},
		},
		"nextToken": "t1",
	}
	data, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var cfg RetrievalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(marshalToMap(t, cfg), src) {
		t.Errorf("round trip changed the wire form:\n got %v\nwant %v", marshalToMap(t, cfg), src)
	}
}
