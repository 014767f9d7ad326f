// Package ledger persists the harvest history: the cross-run cursor
// (title of the most recently ingested report) and an append-only
// per-report backup log used for intra-run duplicate lookup.
package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/medialab/tfcharvest/internal/domain"
)

// Cursor is the cross-run harvest boundary.
type Cursor struct {
	// LastTitle is the title of the newest report ingested so far.
	LastTitle string `json:"last_crawled_title"`
	// LastTime records when the cursor was written.
	LastTime time.Time `json:"last_crawled_time"`
}

// Store is the harvest history abstraction. The pipeline driver holds
// a Store rather than touching files directly.
type Store interface {
	// ReadCursor returns the persisted cursor. A missing cursor is
	// not an error; it returns a zero Cursor.
	ReadCursor() (Cursor, error)
	// WriteCursor persists the cursor, replacing any previous value.
	WriteCursor(c Cursor) error
	// ScanForTitle reports whether a backed-up report with the given
	// title exists.
	ScanForTitle(title string) (bool, error)
	// Append adds one report to the backup log.
	Append(report *domain.Report) error
}

// FileStore implements Store on top of a JSON cursor file and a JSONL
// backup file. Single-writer by construction of the sequential driver.
type FileStore struct {
	historyPath string
	backupPath  string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed ledger store.
func NewFileStore(historyPath, backupPath string) *FileStore {
	return &FileStore{
		historyPath: historyPath,
		backupPath:  backupPath,
	}
}

// ReadCursor returns the persisted cursor, or a zero cursor when the
// history file does not exist or cannot be decoded. Corrupt history
// degrades to a full re-scan rather than failing the run.
func (s *FileStore) ReadCursor() (Cursor, error) {
	data, err := os.ReadFile(s.historyPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Cursor{}, nil
		}
		return Cursor{}, fmt.Errorf("failed to read history file: %w", err)
	}

	var c Cursor
	if unmarshalErr := json.Unmarshal(data, &c); unmarshalErr != nil {
		return Cursor{}, nil
	}
	return c, nil
}

// WriteCursor persists the cursor.
func (s *FileStore) WriteCursor(c Cursor) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cursor: %w", err)
	}
	if writeErr := os.WriteFile(s.historyPath, data, 0o644); writeErr != nil {
		return fmt.Errorf("failed to write history file: %w", writeErr)
	}
	return nil
}

// ScanForTitle scans the backup log line by line for a report with the
// given title. Unparseable lines are skipped.
func (s *FileStore) ScanForTitle(title string) (bool, error) {
	f, err := os.Open(s.backupPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBackupLineBytes)
	for scanner.Scan() {
		var record struct {
			Title string `json:"title"`
		}
		if unmarshalErr := json.Unmarshal(scanner.Bytes(), &record); unmarshalErr != nil {
			continue
		}
		if record.Title == title {
			return true, nil
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return false, fmt.Errorf("failed to scan backup file: %w", scanErr)
	}
	return false, nil
}

// maxBackupLineBytes bounds a single backup line; embedding vectors
// make lines large.
const maxBackupLineBytes = 16 * 1024 * 1024

// Append writes one report as a single JSON line.
func (s *FileStore) Append(report *domain.Report) error {
	f, err := os.OpenFile(s.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open backup file for append: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report for backup: %w", err)
	}
	if _, writeErr := f.Write(append(data, '\n')); writeErr != nil {
		return fmt.Errorf("failed to append to backup file: %w", writeErr)
	}
	return nil
}
