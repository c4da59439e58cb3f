package domain

import "time"

// SourcePhrase is one canonical source-language phrase. The key is the
// stable identifier shared with every locale bundle.
type SourcePhrase struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entry is a (key, value) pair in catalog order. The incoming source
// catalog and the diff output are ordered lists of entries, not maps, so
// that batch boundaries stay deterministic.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
