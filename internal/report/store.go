package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// Refresh modes recorded on index summaries.
const (
	RefreshScheduled = "scheduled"
	RefreshOnDemand  = "on-demand"
)

// Index is the dashboard report index, persisted as index.json next to the
// per-slug report files.
type Index struct {
	GeneratedAt string                 `json:"generatedAt"`
	Reports     []domain.ReportSummary `json:"reports"`
}

// FileStore persists report payloads under a root directory, one
// <slug>.json per report plus the shared index.json.
type FileStore struct {
	root      string
	indexPath string
	now       func() time.Time
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("report: create store dir: %w", err)
	}
	return &FileStore{
		root:      root,
		indexPath: filepath.Join(root, "index.json"),
		now:       time.Now,
	}, nil
}

// WithClock overrides the wall clock, for tests.
func (s *FileStore) WithClock(now func() time.Time) *FileStore {
	s.now = now
	return s
}

func (s *FileStore) reportPath(slug string) (string, error) {
	if slug == "" || strings.ContainsAny(slug, "/\\") || strings.Contains(slug, "..") {
		return "", &domain.ValidationError{Field: "slug", Err: fmt.Errorf("unsafe slug %q", slug)}
	}
	return filepath.Join(s.root, slug+".json"), nil
}

// WriteReport persists the full report payload for a slug.
func (s *FileStore) WriteReport(slug string, rep domain.EventReport) error {
	path, err := s.reportPath(slug)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal %s: %w", slug, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", slug, err)
	}
	return nil
}

// ReadReport returns the raw stored payload for a slug, ErrNotFound when
// the report has never been built.
func (s *FileStore) ReadReport(slug string) (json.RawMessage, error) {
	path, err := s.reportPath(slug)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("report: read %s: %w", slug, err)
	}
	return json.RawMessage(data), nil
}

// ReadIndex loads the report index, or an empty one when it does not exist
// yet.
func (s *FileStore) ReadIndex() (Index, error) {
	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Index{
				GeneratedAt: s.now().UTC().Format(time.RFC3339),
				Reports:     []domain.ReportSummary{},
			}, nil
		}
		return Index{}, fmt.Errorf("report: read index: %w", err)
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return Index{}, fmt.Errorf("report: decode index: %w", err)
	}
	if index.Reports == nil {
		index.Reports = []domain.ReportSummary{}
	}
	return index, nil
}

// WriteIndex persists the index, stamping GeneratedAt.
func (s *FileStore) WriteIndex(index Index) error {
	index.GeneratedAt = s.now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal index: %w", err)
	}
	if err := os.WriteFile(s.indexPath, data, 0o644); err != nil {
		return fmt.Errorf("report: write index: %w", err)
	}
	return nil
}

// UpsertSummary replaces (or appends) the index entry for the summary's
// slug, tagging it with the refresh mode that produced it.
func (s *FileStore) UpsertSummary(summary domain.ReportSummary, refreshMode string) error {
	if refreshMode != RefreshScheduled && refreshMode != RefreshOnDemand {
		return &domain.ValidationError{
			Field: "refreshMode",
			Err:   fmt.Errorf("must be %q or %q, got %q", RefreshScheduled, RefreshOnDemand, refreshMode),
		}
	}
	index, err := s.ReadIndex()
	if err != nil {
		return err
	}
	summary.RefreshMode = refreshMode
	replaced := false
	for i, existing := range index.Reports {
		if existing.Slug == summary.Slug {
			index.Reports[i] = summary
			replaced = true
			break
		}
	}
	if !replaced {
		index.Reports = append(index.Reports, summary)
	}
	return s.WriteIndex(index)
}

// ListSummaries returns the current index entries.
func (s *FileStore) ListSummaries() ([]domain.ReportSummary, error) {
	index, err := s.ReadIndex()
	if err != nil {
		return nil, err
	}
	return index.Reports, nil
}
