package sqlite

import (
	"database/sql"
	"time"

	"github.com/vertextoedge/fetchkit/internal/port"
)

const journalColumns = `id, url, destination, outcome, error, progress, finished_at`

// Record appends an entry to the journal
func (s *Store) Record(entry *port.JournalEntry) error {
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now()
	}

	query := `
		INSERT INTO transfers (url, destination, outcome, error, progress, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var errText sql.NullString
	if entry.Error != "" {
		errText = sql.NullString{String: entry.Error, Valid: true}
	}

	result, err := s.db.Exec(query,
		entry.URL, entry.Destination, entry.Outcome, errText,
		entry.Progress, entry.FinishedAt.UnixMilli())
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(limit int) ([]*port.JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryEntries(`SELECT `+journalColumns+` FROM transfers
		ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
}

// ByURL returns all entries for a resource, newest first
func (s *Store) ByURL(url string) ([]*port.JournalEntry, error) {
	return s.queryEntries(`SELECT `+journalColumns+` FROM transfers
		WHERE url = ? ORDER BY finished_at DESC, id DESC`, url)
}

// Prune deletes entries finished before the cutoff
func (s *Store) Prune(before time.Time) (int, error) {
	result, err := s.db.Exec("DELETE FROM transfers WHERE finished_at < ?", before.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) queryEntries(query string, args ...interface{}) ([]*port.JournalEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*port.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (*port.JournalEntry, error) {
	entry := &port.JournalEntry{}
	var errText sql.NullString
	var finishedAt int64

	err := rows.Scan(
		&entry.ID, &entry.URL, &entry.Destination, &entry.Outcome,
		&errText, &entry.Progress, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	if errText.Valid {
		entry.Error = errText.String
	}
	entry.FinishedAt = time.UnixMilli(finishedAt)
	return entry, nil
}
