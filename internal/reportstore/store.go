package reportstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// ErrNotFound is returned when no report with the given id is stored.
var ErrNotFound = errors.New("report not found")

const fileExt = ".yaml"

// Store keeps finished reports as YAML files, one subdirectory per API:
//
//	<dir>/<api>/<report-id>.yaml
type Store struct {
	mu  sync.RWMutex
	dir string
}

// Entry is the listing view of a stored report.
type Entry struct {
	ID        string        `json:"id"`
	API       string        `json:"api"`
	URL       string        `json:"url"`
	Version   string        `json:"version"`
	StartedAt time.Time     `json:"startedAt"`
	Worst     report.Status `json:"worst"`
	Aborted   bool          `json:"aborted,omitempty"`
}

// New creates a store rooted at dir. The directory is created on first Save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the report, replacing an earlier copy with the same id.
func (s *Store) Save(r report.Report) error {
	if r.ID == "" {
		return fmt.Errorf("report id cannot be empty")
	}
	if r.API == "" {
		return fmt.Errorf("report api cannot be empty")
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report %s: %w", r.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	targetDir := filepath.Join(s.dir, sanitizeFilename(r.API))
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", targetDir, err)
	}

	filePath := filepath.Join(targetDir, sanitizeFilename(r.ID)+fileExt)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}

	logging.Info("ReportStore", "Saved report %s for %s to %s", r.ID, r.API, filePath)
	return nil
}

// Load reads a report by id.
func (s *Store) Load(id string) (report.Report, error) {
	if id == "" {
		return report.Report{}, fmt.Errorf("id cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath, err := s.find(id)
	if err != nil {
		return report.Report{}, err
	}
	return readReport(filePath)
}

// Delete removes a report by id.
func (s *Store) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath, err := s.find(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}

	logging.Info("ReportStore", "Deleted report %s from %s", id, filePath)
	return nil
}

// List returns stored reports, newest first. An empty api lists every API.
func (s *Store) List(api string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern := filepath.Join(s.dir, "*", "*"+fileExt)
	if api != "" {
		pattern = filepath.Join(s.dir, sanitizeFilename(api), "*"+fileExt)
	}
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob reports: %w", err)
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		r, err := readReport(f)
		if err != nil {
			logging.Warn("ReportStore", "Skipping unreadable report %s: %v", f, err)
			continue
		}
		entries = append(entries, Entry{
			ID:        r.ID,
			API:       r.API,
			URL:       r.URL,
			Version:   r.Version,
			StartedAt: r.StartedAt,
			Worst:     r.Worst(),
			Aborted:   r.Aborted,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})

	logging.Debug("ReportStore", "Listed %d reports", len(entries))
	return entries, nil
}

func (s *Store) find(id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*", sanitizeFilename(id)+fileExt))
	if err != nil {
		return "", fmt.Errorf("failed to glob reports: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return matches[0], nil
}

func readReport(path string) (report.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return report.Report{}, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	var r report.Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return report.Report{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return r, nil
}

// sanitizeFilename keeps names safe for the filesystem. Dots are replaced
// too, so ids and API names can never climb out of the store directory.
func sanitizeFilename(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '.', ' ':
			return '_'
		}
		return r
	}, name)

	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
