package port

import (
	"time"
)

// Transfer outcomes recorded in the journal
const (
	OutcomeCompleted = "completed"
	OutcomeStopped   = "stopped"
	OutcomeFailed    = "failed"
)

// JournalEntry is one terminal settlement of a download
type JournalEntry struct {
	ID          int64
	URL         string
	Destination string
	Outcome     string
	Error       string
	Progress    float64
	FinishedAt  time.Time
}

// Journal records terminal download outcomes. It never stores resume data.
type Journal interface {
	// Record appends an entry
	Record(entry *JournalEntry) error

	// Recent returns up to limit entries, newest first
	Recent(limit int) ([]*JournalEntry, error)

	// ByURL returns all entries for a resource, newest first
	ByURL(url string) ([]*JournalEntry, error)

	// Prune deletes entries finished before the cutoff
	// Returns the number of rows deleted
	Prune(before time.Time) (int, error)
}
