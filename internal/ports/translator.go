package ports

import "context"

// Translator is the machine-translation oracle. Implementations must
// preserve order and count on success; a rate-limit response is signalled
// with domain.ErrRateLimited, everything else is a plain error.
type Translator interface {
	Translate(ctx context.Context, from, to string, texts []string) ([]string, error)
}
