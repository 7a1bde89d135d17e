package docstore

import (
	"encoding/json"
	"fmt"
)

// Encode converts a struct with json tags into a Document
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("docstore: encode: %w", err)
	}
	return doc, nil
}

// Decode fills v from a Document
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: decode: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("docstore: decode: %w", err)
	}
	return nil
}

// Normalize maps a Go value to the representation it has inside a stored document
// (numbers become float64, times become RFC3339 strings, slices become []any)
func Normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64:
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: normalize: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("docstore: normalize: %w", err)
	}
	return out, nil
}

// NormalizeDocument normalizes every value of d
func NormalizeDocument(d Document) (Document, error) {
	if d == nil {
		return Document{}, nil
	}
	out, err := Normalize(map[string]any(d))
	if err != nil {
		return nil, err
	}
	m, _ := out.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	return Document(m), nil
}
