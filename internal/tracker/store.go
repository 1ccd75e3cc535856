package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists the tracker record as an indented JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed tracker store at the given path. The
// file is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the record from disk. A missing or unparseable file yields an
// empty record rather than an error.
func (s *FileStore) Load() (Record, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return EmptyRecord(), nil
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return EmptyRecord(), nil
	}

	// Tolerate hand-edited files with absent keys.
	if record.Digests == nil {
		record.Digests = []string{}
	}
	if record.Stories == nil {
		record.Stories = []string{}
	}
	if record.Tweets == nil {
		record.Tweets = []string{}
	}
	return record, nil
}

// Save writes the record atomically via a temp file rename, so a crash
// mid-write never leaves a truncated tracker behind.
func (s *FileStore) Save(record Record) error {
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tracker record: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".tracker-*.json")
	if err != nil {
		return fmt.Errorf("create temp tracker file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write tracker record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp tracker file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace tracker file: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory tracker store for tests.
type MemoryStore struct {
	record Record
	// SaveErr, when set, is returned by Save to simulate persistence failure.
	SaveErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{record: EmptyRecord()}
}

// Load returns a copy of the current record.
func (s *MemoryStore) Load() (Record, error) {
	copied := s.record
	copied.Digests = append([]string(nil), s.record.Digests...)
	copied.Stories = append([]string(nil), s.record.Stories...)
	copied.Tweets = append([]string(nil), s.record.Tweets...)
	return copied, nil
}

// Save replaces the stored record.
func (s *MemoryStore) Save(record Record) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.record = record
	return nil
}
