// Package features persists feature requests submitted through the
// server. Requests are a lightweight backlog: when a caller hits a
// capability the server lacks, it records what was needed and why.
package features

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coreyhahn/vivado-mcp/internal/domain"
)

// Request is one recorded feature request.
type Request struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	UseCase     string    `json:"use_case"`
	Priority    string    `json:"priority"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
}

// Store keeps requests in a JSON file. IDs are sequential starting at 1.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// List returns all recorded requests. A missing or unreadable file is
// an empty backlog, not an error.
func (s *Store) List() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() []Request {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var requests []Request
	if err := json.Unmarshal(data, &requests); err != nil {
		return nil
	}
	return requests
}

// Add records a new request and returns it with its assigned ID.
func (s *Store) Add(title, description, useCase, priority string) (Request, error) {
	if priority == "" {
		priority = "medium"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requests := s.load()
	req := Request{
		ID:          len(requests) + 1,
		Title:       title,
		Description: description,
		UseCase:     useCase,
		Priority:    priority,
		Timestamp:   time.Now(),
		Status:      "pending",
	}
	requests = append(requests, req)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return Request{}, domain.WrapOp("features.Add", err)
	}
	data, err := json.MarshalIndent(requests, "", "  ")
	if err != nil {
		return Request{}, domain.WrapOp("features.Add", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return Request{}, domain.WrapOp("features.Add", err)
	}
	return req, nil
}
