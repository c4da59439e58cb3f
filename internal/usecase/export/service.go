// Package export writes locale bundles and per-locale failed-key
// artifacts to the output directory. All writes go through an atomic
// rename so a reader never observes a torn file.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio"

	"github.com/malinali-app/trad/internal/ports"
)

type Service struct {
	OutDir string
	Codec  ports.BundleCodec
}

func New(outDir string, codec ports.BundleCodec) *Service {
	return &Service{OutDir: outDir, Codec: codec}
}

func (s *Service) BundlePath(locale string) string {
	return filepath.Join(s.OutDir, locale+".json")
}

func (s *Service) FailedPath(locale string) string {
	return filepath.Join(s.OutDir, locale+".failed.json")
}

// WriteBundle emits the full current state for a locale, with metadata
// keys carried through untranslated.
func (s *Service) WriteBundle(locale string, values, metadata map[string]string) error {
	if err := os.MkdirAll(s.OutDir, 0o755); err != nil {
		return fmt.Errorf("make out dir: %w", err)
	}
	data, err := s.Codec.Encode(values, metadata)
	if err != nil {
		return fmt.Errorf("encode bundle %s: %w", locale, err)
	}
	if err := renameio.WriteFile(s.BundlePath(locale), data, 0o644); err != nil {
		return fmt.Errorf("write bundle %s: %w", locale, err)
	}
	return nil
}

// WriteFailedKeys records the keys that could not be translated this run
// so a follow-up run can retry just those. With no failures the stale
// artifact from a previous run is removed.
func (s *Service) WriteFailedKeys(locale string, keys []string) error {
	path := s.FailedPath(locale)
	if len(keys) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove failed artifact %s: %w", locale, err)
		}
		return nil
	}
	if err := os.MkdirAll(s.OutDir, 0o755); err != nil {
		return fmt.Errorf("make out dir: %w", err)
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write failed artifact %s: %w", locale, err)
	}
	return nil
}

// ReadFailedKeys loads a previous run's failed-key artifact. A missing
// file means no pending failures.
func (s *Service) ReadFailedKeys(locale string) ([]string, error) {
	data, err := os.ReadFile(s.FailedPath(locale))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read failed artifact %s: %w", locale, err)
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("parse failed artifact %s: %w", locale, err)
	}
	return keys, nil
}

// ExportLocale re-emits one locale's bundle from store state only.
func (s *Service) ExportLocale(ctx context.Context, translations ports.TranslationRepository, locale string, metadata map[string]string) (int, error) {
	stored, err := translations.ListByLocale(ctx, locale)
	if err != nil {
		return 0, err
	}
	values := make(map[string]string, len(stored))
	for k, t := range stored {
		values[k] = t.Value
	}
	if err := s.WriteBundle(locale, values, metadata); err != nil {
		return 0, err
	}
	return len(values), nil
}
