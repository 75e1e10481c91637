package reports

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coreyhahn/vivado-mcp/internal/domain"
	"github.com/coreyhahn/vivado-mcp/internal/infra/config"
)

// Metadata describes one generated report file.
type Metadata struct {
	ID         string    `json:"report_id"`
	FilePath   string    `json:"file_path"`
	ReportType string    `json:"report_type"`
	Created    time.Time `json:"created"`
	SizeBytes  int64     `json:"size_bytes"`
	LineCount  int       `json:"line_count"`
}

// Store manages report files written by the tool and an in-memory index
// from report ID to metadata. Files expire after the configured TTL;
// expiry runs opportunistically when the directory is prepared for a
// new report, so an idle server holds no timers.
type Store struct {
	dir string
	ttl time.Duration
	log *slog.Logger

	mu    sync.Mutex
	cache map[string]Metadata
}

func NewStore(cfg config.ReportsConfig, log *slog.Logger) *Store {
	return &Store{
		dir:   cfg.Dir,
		ttl:   cfg.CacheTTL,
		log:   log,
		cache: make(map[string]Metadata),
	}
}

// Dir returns the reports directory.
func (s *Store) Dir() string { return s.dir }

// NewID returns a short unique report identifier.
func (s *Store) NewID() string {
	return uuid.NewString()[:8]
}

// DefaultPath returns where a report of the given type and ID lives.
func (s *Store) DefaultPath(reportType, id string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.txt", reportType, id))
}

// Prepare creates the reports directory and removes files older than
// the TTL, dropping their index entries as well.
func (s *Store) Prepare() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return domain.WrapOp("reports.Prepare", err)
	}

	cutoff := time.Now().Add(-s.ttl)
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.txt"))
	if err != nil {
		return nil
	}
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			continue
		}
		id := stemID(path)
		s.mu.Lock()
		delete(s.cache, id)
		s.mu.Unlock()
		s.log.Debug("expired report removed", "path", path)
	}
	return nil
}

// stemID extracts the report ID from a "<type>_<id>.txt" filename.
func stemID(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), ".txt")
	if idx := strings.LastIndex(stem, "_"); idx >= 0 {
		return stem[idx+1:]
	}
	return stem
}

// Record stats a freshly written report file and indexes it.
func (s *Store) Record(id, path, reportType string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, domain.WrapOp("reports.Record", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, domain.WrapOp("reports.Record", err)
	}

	md := Metadata{
		ID:         id,
		FilePath:   path,
		ReportType: reportType,
		Created:    time.Now(),
		SizeBytes:  info.Size(),
		LineCount:  countLines(data),
	}
	s.mu.Lock()
	s.cache[id] = md
	s.mu.Unlock()
	return md, nil
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// Resolve maps a report ID to its file path, consulting the index first
// and falling back to a directory scan so reports survive restarts as
// long as the file is still on disk.
func (s *Store) Resolve(id string) (string, error) {
	s.mu.Lock()
	md, ok := s.cache[id]
	s.mu.Unlock()
	if ok {
		return md.FilePath, nil
	}

	matches, _ := filepath.Glob(filepath.Join(s.dir, "*_"+id+".txt"))
	if len(matches) > 0 {
		return matches[0], nil
	}
	return "", domain.NewSubSystemError("reports", "reports.Resolve", domain.ErrNotFound,
		fmt.Sprintf("report ID %q not found in cache or reports directory", id))
}
