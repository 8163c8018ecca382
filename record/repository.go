package record

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// FileRepository persists session records as JSON files.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a FileRepository that writes to the given directory.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Save writes the record as JSON to {dir}/{session_id}.json.
func (r *FileRepository) Save(_ context.Context, record *Record) error {
	if err := os.MkdirAll(r.dir, 0750); err != nil {
		return goerr.Wrap(err, "failed to create record directory", goerr.V("dir", r.dir))
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal record")
	}

	filePath := filepath.Join(r.dir, record.Session.ID+".json")
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return goerr.Wrap(err, "failed to write record file", goerr.V("path", filePath))
	}

	return nil
}

// MemoryRepository keeps records in memory. It is intended for tests.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: map[string]*Record{}}
}

// Save stores the record, keyed by session ID.
func (r *MemoryRepository) Save(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.Session.ID] = record
	return nil
}

// Get returns the record for a session ID, or nil if absent.
func (r *MemoryRepository) Get(sessionID string) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[sessionID]
}

// IDs returns the session IDs of all stored records.
func (r *MemoryRepository) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of stored records.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
