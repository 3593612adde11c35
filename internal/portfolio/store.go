package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the ledger document.
type Store interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// FileStore keeps the document in a single JSON file, replaced wholesale on save.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the document. Missing maps are initialized.
func (s *FileStore) Load(_ context.Context) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Document{}, fmt.Errorf("read ledger: %w", err)
	}

	doc := NewDocument()
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode ledger %s: %w", s.path, err)
	}
	if doc.Holdings == nil {
		doc.Holdings = make(map[string]Positions)
	}
	if doc.Transactions == nil {
		doc.Transactions = make(map[string][]Transaction)
	}
	return doc, nil
}

// Save writes the document to a temp file and renames it over the old one.
func (s *FileStore) Save(_ context.Context, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
