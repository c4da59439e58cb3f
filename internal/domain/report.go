package domain

import "time"

// LocaleReport summarizes one locale's outcome within a sync run.
type LocaleReport struct {
	Locale        string   `json:"locale"`
	Translated    int      `json:"translated"`
	SkippedManual int      `json:"skipped_manual"`
	FailedKeys    []string `json:"failed_keys,omitempty"`
	// Err is set when a storage failure aborted this locale. Oracle
	// failures never set it; they land in FailedKeys.
	Err error `json:"-"`
}

// SyncReport is what a sync run hands back to the caller.
type SyncReport struct {
	Diffed    int            `json:"diffed"`
	Forced    bool           `json:"forced"`
	NoChanges bool           `json:"no_changes"`
	Locales   []LocaleReport `json:"locales"`
	Elapsed   time.Duration  `json:"elapsed"`
}
