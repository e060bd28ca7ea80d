// Package changelog records which rows a save touched so downstream sync can
// replay partial updates. Appending is best-effort: a failed append is logged
// by the caller and never undoes the save it describes.
package changelog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry describes one touched row. Op is the change descriptor string:
// "INSERT" or "UPDATE(col1,col2,...)".
type Entry struct {
	ID      string    `json:"id"`
	Country string    `json:"country"`
	Table   string    `json:"table"`
	RowID   string    `json:"row_id"`
	Op      string    `json:"op"`
	At      time.Time `json:"at"`
}

// Session batches entries for one save; Commit publishes them together.
type Session interface {
	Add(table, rowID, op string)
	Commit(ctx context.Context) error
}

// Log opens change-log sessions per country.
type Log interface {
	Begin(country string) Session
}

// MemoryLog keeps committed entries in memory; the default when no broker is
// configured, and the test double.
type MemoryLog struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

func (l *MemoryLog) Begin(country string) Session {
	return &memorySession{log: l, country: country}
}

// Entries returns a copy of everything committed so far.
func (l *MemoryLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

type memorySession struct {
	log     *MemoryLog
	country string
	pending []Entry
}

func (s *memorySession) Add(table, rowID, op string) {
	s.pending = append(s.pending, Entry{
		ID:      uuid.New().String(),
		Country: s.country,
		Table:   table,
		RowID:   rowID,
		Op:      op,
		At:      time.Now().UTC(),
	})
}

func (s *memorySession) Commit(ctx context.Context) error {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()
	s.log.entries = append(s.log.entries, s.pending...)
	s.pending = nil
	return nil
}
