// Package diff decides which phrases need (re-)translation.
package diff

import "github.com/malinali-app/trad/internal/domain"

// Delta returns the incoming entries that are new or whose value changed
// relative to the stored source phrases, preserving incoming order. The
// comparison is against the canonical store only — locales play no part.
// With force set, every incoming entry is returned.
func Delta(incoming []domain.Entry, stored map[string]domain.SourcePhrase, force bool) []domain.Entry {
	if force {
		out := make([]domain.Entry, len(incoming))
		copy(out, incoming)
		return out
	}
	var out []domain.Entry
	for _, e := range incoming {
		if p, ok := stored[e.Key]; !ok || p.Value != e.Value {
			out = append(out, e)
		}
	}
	return out
}
