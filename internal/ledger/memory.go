package ledger

import "github.com/medialab/tfcharvest/internal/domain"

// MemoryStore is an in-memory Store used in tests.
type MemoryStore struct {
	cursor  Cursor
	hasSet  bool
	Reports []*domain.Report
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ReadCursor returns the in-memory cursor.
func (s *MemoryStore) ReadCursor() (Cursor, error) {
	return s.cursor, nil
}

// WriteCursor replaces the in-memory cursor.
func (s *MemoryStore) WriteCursor(c Cursor) error {
	s.cursor = c
	s.hasSet = true
	return nil
}

// CursorWritten reports whether WriteCursor was ever called.
func (s *MemoryStore) CursorWritten() bool {
	return s.hasSet
}

// ScanForTitle checks the appended reports for a title match.
func (s *MemoryStore) ScanForTitle(title string) (bool, error) {
	for _, r := range s.Reports {
		if r.Title == title {
			return true, nil
		}
	}
	return false, nil
}

// Append records the report in memory.
func (s *MemoryStore) Append(report *domain.Report) error {
	s.Reports = append(s.Reports, report)
	return nil
}
