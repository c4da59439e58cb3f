// Package flatjson reads and writes locale bundles: a flat JSON object
// mapping phrase keys to localized strings. Keys starting with '$' are
// metadata (e.g. $schema) — never translated, but carried through export.
package flatjson

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MetadataPrefix marks non-translatable bundle keys.
const MetadataPrefix = '$'

type Codec struct{}

func New() *Codec { return &Codec{} }

func (c *Codec) Decode(data []byte) (map[string]string, map[string]string, error) {
	data = stripBOM(data)
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("invalid json: %w", err)
	}
	values := make(map[string]string, len(m))
	metadata := map[string]string{}
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if len(k) > 0 && k[0] == MetadataPrefix {
			metadata[k] = s
			continue
		}
		values[k] = s
	}
	return values, metadata, nil
}

func (c *Codec) Encode(values map[string]string, metadata map[string]string) ([]byte, error) {
	out := make(map[string]string, len(values)+len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	for k, v := range values {
		out[k] = v
	}
	return json.MarshalIndent(out, "", "  ")
}

func stripBOM(b []byte) []byte {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if len(b) >= 3 && bytes.Equal(b[:3], bom) {
		return b[3:]
	}
	return b
}
