// Package catalog parses the source phrase catalog: an ordered JSON array
// of single-entry objects. Array order is the canonical phrase order;
// duplicate keys resolve last-write-wins.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/malinali-app/trad/internal/adapters/bundle/flatjson"
	"github.com/malinali-app/trad/internal/domain"
)

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Parse(data []byte) ([]domain.Entry, map[string]string, error) {
	data = stripBOM(data)
	var raw []map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("invalid catalog json: %w", err)
	}
	entries := make([]domain.Entry, 0, len(raw))
	index := make(map[string]int, len(raw))
	metadata := map[string]string{}
	for i, obj := range raw {
		if len(obj) != 1 {
			return nil, nil, fmt.Errorf("catalog entry %d: expected exactly one key, got %d", i, len(obj))
		}
		for k, v := range obj {
			if len(k) > 0 && k[0] == flatjson.MetadataPrefix {
				metadata[k] = v
				continue
			}
			if at, ok := index[k]; ok {
				entries[at].Value = v
				continue
			}
			index[k] = len(entries)
			entries = append(entries, domain.Entry{Key: k, Value: v})
		}
	}
	return entries, metadata, nil
}

func stripBOM(b []byte) []byte {
	bom := []byte{0xEF, 0xBB, 0xBF}
	if len(b) >= 3 && bytes.Equal(b[:3], bom) {
		return b[3:]
	}
	return b
}
