package retrieval

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SearchType overrides the knowledge base's default search strategy.
type SearchType string

// Supported search type overrides.
const (
	SearchTypeHybrid   SearchType = "HYBRID"
	SearchTypeSemantic SearchType = "SEMANTIC"
)

// IsValid checks if the search type is one of the supported values.
func (s SearchType) IsValid() bool {
	return s == SearchTypeHybrid || s == SearchTypeSemantic
}

// DefaultNumberOfResults is used when a vector search config sets none.
const DefaultNumberOfResults = 4

// VectorSearchConfig controls how the knowledge base executes one query.
// Unrecognized keys from user-supplied mappings are kept in Extra and
// serialized back verbatim, so fields the remote API adds later pass
// through unmodified.
type VectorSearchConfig struct {
	NumberOfResults    int
	Filter             *SearchFilter
	OverrideSearchType SearchType
	Extra              map[string]any
}

// NewVectorSearchConfig validates and creates a vector search config.
// numberOfResults 0 means the default of 4.
func NewVectorSearchConfig(numberOfResults int, f *SearchFilter, override SearchType) (VectorSearchConfig, error) {
	cfg := VectorSearchConfig{
		NumberOfResults:    numberOfResults,
		Filter:             f,
		OverrideSearchType: override,
	}
	if cfg.NumberOfResults == 0 {
		cfg.NumberOfResults = DefaultNumberOfResults
	}
	if err := cfg.Validate(); err != nil {
		return VectorSearchConfig{}, err
	}
	return cfg, nil
}

// Validate checks the config invariants.
func (c *VectorSearchConfig) Validate() error {
	if c.NumberOfResults < 0 {
		return fmt.Errorf("%w: numberOfResults must be positive, got %d", ErrInvalidConfig, c.NumberOfResults)
	}
	if c.OverrideSearchType != "" && !c.OverrideSearchType.IsValid() {
		return fmt.Errorf("%w: overrideSearchType must be %q or %q, got %q",
			ErrInvalidConfig, SearchTypeHybrid, SearchTypeSemantic, c.OverrideSearchType)
	}
	return c.Filter.Validate()
}

// MarshalJSON serializes in the omit-unset, use-aliases wire form that the
// request builder depends on: unset fields are absent rather than null, and
// the filter's aliased operators use their wire names.
func (c VectorSearchConfig) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Extra)+3)
	for k, v := range c.Extra {
		m[k] = v
	}
	n := c.NumberOfResults
	if n == 0 {
		n = DefaultNumberOfResults
	}
	m["numberOfResults"] = n
	if c.Filter != nil {
		m["filter"] = c.Filter
	}
	if c.OverrideSearchType != "" {
		m["overrideSearchType"] = c.OverrideSearchType
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes the wire form, preserving unrecognized keys.
func (c *VectorSearchConfig) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: vectorSearchConfiguration: %v", ErrInvalidConfig, err)
	}
	cfg, err := vectorSearchFromMap(m)
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

// RetrievalConfig is the full per-query retrieval configuration: vector
// search parameters plus an opaque pagination token. The retriever never
// follows the token itself; callers supply it across calls.
type RetrievalConfig struct {
	VectorSearch VectorSearchConfig
	NextToken    string
	Extra        map[string]any
}

// NewRetrievalConfig validates and creates a retrieval config.
func NewRetrievalConfig(vs VectorSearchConfig, nextToken string) (RetrievalConfig, error) {
	cfg := RetrievalConfig{VectorSearch: vs, NextToken: nextToken}
	if err := cfg.Validate(); err != nil {
		return RetrievalConfig{}, err
	}
	return cfg, nil
}

// Validate checks the config invariants. A nil config is valid (the remote
// API applies its own defaults).
func (c *RetrievalConfig) Validate() error {
	if c == nil {
		return nil
	}
	return c.VectorSearch.Validate()
}

// MarshalJSON serializes in the omit-unset, use-aliases wire form.
func (c RetrievalConfig) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Extra)+2)
	for k, v := range c.Extra {
		m[k] = v
	}
	m["vectorSearchConfiguration"] = c.VectorSearch
	if c.NextToken != "" {
		m["nextToken"] = c.NextToken
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes the wire form, preserving unrecognized keys.
func (c *RetrievalConfig) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: retrievalConfiguration: %v", ErrInvalidConfig, err)
	}
	cfg, err := RetrievalConfigFromMap(m)
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

// RetrievalConfigFromMap builds a RetrievalConfig from a nested mapping,
// e.g. parsed YAML or JSON user configuration. Recognized keys are
// validated and typed; all other keys are preserved verbatim for forward
// compatibility with remote API additions.
func RetrievalConfigFromMap(m map[string]any) (RetrievalConfig, error) {
	raw, ok := m["vectorSearchConfiguration"]
	if !ok {
		return RetrievalConfig{}, fmt.Errorf("%w: vectorSearchConfiguration is required", ErrInvalidConfig)
	}
	vsMap, ok := raw.(map[string]any)
	if !ok {
		return RetrievalConfig{}, fmt.Errorf("%w: vectorSearchConfiguration must be a mapping", ErrInvalidConfig)
	}
	vs, err := vectorSearchFromMap(vsMap)
	if err != nil {
		return RetrievalConfig{}, err
	}

	cfg := RetrievalConfig{VectorSearch: vs}
	for k, v := range m {
		switch k {
		case "vectorSearchConfiguration":
		case "nextToken":
			s, ok := v.(string)
			if !ok {
				return RetrievalConfig{}, fmt.Errorf("%w: nextToken must be a string", ErrInvalidConfig)
			}
			cfg.NextToken = s
		default:
			if cfg.Extra == nil {
				cfg.Extra = make(map[string]any)
			}
			cfg.Extra[k] = v
		}
	}
	return cfg, nil
}

func vectorSearchFromMap(m map[string]any) (VectorSearchConfig, error) {
	vs := VectorSearchConfig{NumberOfResults: DefaultNumberOfResults}
	for k, v := range m {
		switch k {
		case "numberOfResults":
			n, ok := intFromAny(v)
			if !ok {
				return VectorSearchConfig{}, fmt.Errorf("%w: numberOfResults must be an integer", ErrInvalidConfig)
			}
			vs.NumberOfResults = n
		case "filter":
			f, err := filterFromAny(v)
			if err != nil {
				return VectorSearchConfig{}, err
			}
			vs.Filter = f
		case "overrideSearchType":
			s, ok := v.(string)
			if !ok {
				return VectorSearchConfig{}, fmt.Errorf("%w: overrideSearchType must be a string", ErrInvalidConfig)
			}
			vs.OverrideSearchType = SearchType(s)
		default:
			if vs.Extra == nil {
				vs.Extra = make(map[string]any)
			}
			vs.Extra[k] = v
		}
	}
	if vs.NumberOfResults <= 0 {
		return VectorSearchConfig{}, fmt.Errorf("%w: numberOfResults must be positive, got %d", ErrInvalidConfig, vs.NumberOfResults)
	}
	if err := vs.Validate(); err != nil {
		return VectorSearchConfig{}, err
	}
	return vs, nil
}

// filterFromAny decodes a filter mapping strictly: unlike the surrounding
// config, the filter type is closed and unknown operators are rejected.
func filterFromAny(v any) (*SearchFilter, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: filter: %v", ErrInvalidConfig, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var f SearchFilter
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: filter: %v", ErrInvalidConfig, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// intFromAny accepts the integer representations produced by the JSON and
// YAML decoders.
func intFromAny(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
