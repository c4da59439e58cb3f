// Package translator turns a list of phrases into translations by calling
// the oracle in fixed-size batches, retrying rate-limited batches with
// exponential backoff.
package translator

import (
	"context"
	"errors"
	"time"

	"github.com/malinali-app/trad/internal/domain"
	"github.com/malinali-app/trad/internal/ports"
)

const (
	DefaultBatchSize  = 100
	DefaultMaxRetries = 3
	DefaultRetryBase  = 10 * time.Second
	DefaultBatchPause = 3 * time.Second
)

// Options controls batching and backoff behavior.
type Options struct {
	// BatchSize is how many phrases go into one oracle call.
	BatchSize int
	// MaxRetries is the number of attempts for a rate-limited batch.
	MaxRetries int
	// RetryBase is the first backoff delay; it doubles per attempt.
	RetryBase time.Duration
	// BatchPause is the fixed delay between successive successful batches.
	BatchPause time.Duration
	// OnChunk receives each successful batch as soon as it completes, so
	// partial progress can be persisted. A non-nil return aborts the run
	// and propagates (storage failures only — oracle failures never come
	// through here).
	OnChunk func(pairs []domain.Entry) error
	// OnLog emits progress messages. May be nil.
	OnLog func(format string, args ...any)
	// Sleep is swapped out in tests. Defaults to a context-aware wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryBase <= 0 {
		o.RetryBase = DefaultRetryBase
	}
	if o.BatchPause <= 0 {
		o.BatchPause = DefaultBatchPause
	}
	if o.Sleep == nil {
		o.Sleep = sleep
	}
	return o
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Result is the outcome of one locale's batch run. Merged holds every
// successfully translated pair; FailedKeys every key whose batch failed.
// A key lands in exactly one of the two.
type Result struct {
	Merged     map[string]string
	FailedKeys []string
}

type Service struct {
	oracle ports.Translator
}

func New(oracle ports.Translator) *Service { return &Service{oracle: oracle} }

// Run translates entries from one locale to another in batches. Batch
// failures never abort the run — the keys are recorded and the next batch
// proceeds. Only OnChunk (persistence) errors and context cancellation
// propagate.
func (s *Service) Run(ctx context.Context, from, to string, entries []domain.Entry, opts Options) (Result, error) {
	opts = opts.withDefaults()
	res := Result{Merged: map[string]string{}}
	logf := opts.OnLog
	if logf == nil {
		logf = func(string, ...any) {}
	}
	prevSucceeded := false
	for start := 0; start < len(entries); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]
		// Pause between successive successful batches to respect the
		// service's throughput limits; a failed batch already waited.
		if prevSucceeded {
			if err := opts.Sleep(ctx, opts.BatchPause); err != nil {
				return res, err
			}
		}
		translated, err := s.translateChunk(ctx, from, to, chunk, opts)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logf("batch %d-%d failed for %s: %v", start, end, to, err)
			for _, e := range chunk {
				res.FailedKeys = append(res.FailedKeys, e.Key)
			}
			prevSucceeded = false
			continue
		}
		prevSucceeded = true
		pairs := make([]domain.Entry, len(chunk))
		for i, e := range chunk {
			pairs[i] = domain.Entry{Key: e.Key, Value: translated[i]}
		}
		if opts.OnChunk != nil {
			if err := opts.OnChunk(pairs); err != nil {
				return res, err
			}
		}
		// Merged only reflects chunks the OnChunk callback accepted, so
		// a persistence abort never claims keys that were not stored.
		for _, pair := range pairs {
			res.Merged[pair.Key] = pair.Value
		}
		logf("translated %d/%d for %s", end, len(entries), to)
	}
	return res, nil
}

// translateChunk calls the oracle once per attempt, retrying only on rate
// limit with delays of base, 2*base, 4*base after each limited attempt.
func (s *Service) translateChunk(ctx context.Context, from, to string, chunk []domain.Entry, opts Options) ([]string, error) {
	texts := make([]string, len(chunk))
	for i, e := range chunk {
		texts[i] = e.Value
	}
	var lastErr error
	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		out, err := s.oracle.Translate(ctx, from, to, texts)
		if err == nil {
			if len(out) != len(texts) {
				return nil, domain.ErrShapeMismatch
			}
			return out, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrRateLimited) {
			return nil, err
		}
		wait := opts.RetryBase << attempt
		if opts.OnLog != nil {
			opts.OnLog("rate limited, waiting %v before retry (attempt %d/%d)", wait, attempt+1, opts.MaxRetries)
		}
		if serr := opts.Sleep(ctx, wait); serr != nil {
			return nil, serr
		}
	}
	return nil, lastErr
}
