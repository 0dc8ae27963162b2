package retrieval

import (
	"encoding/json"
	"fmt"
)

// Content type tags returned by the remote API.
const (
	ContentTypeText  = "TEXT"
	ContentTypeImage = "IMAGE"
	ContentTypeRow   = "ROW"
)

// Metadata keys guaranteed on every decoded document.
const (
	MetaType           = "type"
	MetaScore          = "score"
	MetaSourceMetadata = "source_metadata"
)

// RawResult is one wire-format result record: a content object plus
// optional score, metadata, and arbitrary pass-through fields.
type RawResult map[string]any

// Page is one response from the remote retrieve call. NextToken is set when
// the knowledge base has further results; the retriever never follows it.
type Page struct {
	RetrievalResults []RawResult `json:"retrievalResults"`
	NextToken        string      `json:"nextToken,omitempty"`
}

// Document is a normalized retrieval result. Content is nil when the
// content type is unrecognized or carries no text. Metadata always holds
// "type" and "score"; the original result metadata, when present, is kept
// under "source_metadata".
type Document struct {
	Content  *string
	Metadata map[string]any
}

// Score returns the document's confidence score. ok is false when the score
// is missing or not numeric.
func (d *Document) Score() (float64, bool) {
	return floatFromAny(d.Metadata[MetaScore])
}

// DecodeResult normalizes one raw result into a Document without mutating
// the input. It fails with ErrInvalidResult when the record is empty or
// carries no content object; an unrecognized content type is not an error
// and yields a nil body.
func DecodeResult(raw RawResult) (Document, error) {
	body, contentType, err := extractContent(raw)
	if err != nil {
		return Document{}, err
	}

	meta := make(map[string]any, len(raw)+2)
	for k, v := range raw {
		switch k {
		case "content":
		case "metadata":
			meta[MetaSourceMetadata] = v
		default:
			meta[k] = v
		}
	}
	meta[MetaType] = contentType
	if _, ok := meta[MetaScore]; !ok {
		meta[MetaScore] = float64(0)
	}

	return Document{Content: body, Metadata: meta}, nil
}

// extractContent converts the content object of one result into a body
// string, dispatching on the content type tag.
func extractContent(raw RawResult) (body *string, contentType string, err error) {
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("%w: empty result", ErrInvalidResult)
	}
	content, ok := raw["content"].(map[string]any)
	if !ok || len(content) == 0 {
		return nil, "", fmt.Errorf("%w: content is missing from the result", ErrInvalidResult)
	}

	contentType, _ = content["type"].(string)
	if contentType == "" {
		contentType = ContentTypeText
	}

	switch contentType {
	case ContentTypeText:
		return stringField(content, "text"), contentType, nil
	case ContentTypeImage:
		// Opaque byte content, passed through undecoded.
		return stringField(content, "byteContent"), contentType, nil
	case ContentTypeRow:
		s, err := rowBody(content["row"])
		if err != nil {
			return nil, "", err
		}
		return &s, contentType, nil
	default:
		// Unknown content types decode to a nil body so additions on the
		// remote side do not break existing callers.
		return nil, contentType, nil
	}
}

func stringField(m map[string]any, key string) *string {
	s, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &s
}

// rowBody serializes the tabular row payload. A missing or empty row
// serializes as an empty JSON array rather than null.
func rowBody(v any) (string, error) {
	if v == nil {
		return "[]", nil
	}
	if rows, ok := v.([]any); ok && len(rows) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: row content: %v", ErrInvalidResult, err)
	}
	return string(data), nil
}

// FilterByScore retains documents whose score is present and at least
// minScore, preserving order and without mutating retained documents.
// A zero minScore returns the input unchanged.
func FilterByScore(docs []Document, minScore float64) []Document {
	if minScore == 0 {
		return docs
	}
	filtered := make([]Document, 0, len(docs))
	for _, d := range docs {
		if s, ok := d.Score(); ok && s >= minScore {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

func floatFromAny(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
