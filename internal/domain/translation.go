package domain

import "time"

// Provenance records whether a translation came from the machine
// translation service or was fixed by a human. Manual translations are
// never overwritten by sync.
type Provenance string

const (
	ProvenanceAutomatic Provenance = "automatic"
	ProvenanceManual    Provenance = "manual"
)

// Valid reports whether p is one of the two known variants.
func (p Provenance) Valid() bool {
	return p == ProvenanceAutomatic || p == ProvenanceManual
}

// Translation is one localized value for a phrase, keyed by (Key, Locale).
type Translation struct {
	Key        string     `json:"key"`
	Locale     string     `json:"locale"`
	Value      string     `json:"value"`
	Provenance Provenance `json:"provenance"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
