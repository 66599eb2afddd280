package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sectools/azrecon/pkg/models/domain"
)

// Format selects a report renderer.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// ParseFormat accepts the wire spellings of a report format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

func (f Format) extension() string {
	if f == FormatPDF {
		return ".pdf"
	}
	return ".md"
}

// SnapshotSource serves the snapshot a report is generated from.
type SnapshotSource interface {
	Latest(ctx context.Context, tenantID string) (*domain.ScanSnapshot, error)
}

// GeneratedReport describes one report file on disk.
type GeneratedReport struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Format      Format    `json:"format"`
	Path        string    `json:"path"`
	GeneratedAt time.Time `json:"generated_at"`
	SizeBytes   int64     `json:"size_bytes"`
}

// Manager renders reports from stored snapshots and keeps them in a
// reports directory.
type Manager struct {
	source   SnapshotSource
	markdown *MarkdownRenderer
	pdf      *PDFRenderer
	dir      string
}

func NewManager(source SnapshotSource, dir string) *Manager {
	return &Manager{
		source:   source,
		markdown: NewMarkdownRenderer(),
		pdf:      NewPDFRenderer(),
		dir:      dir,
	}
}

// Generate renders the latest snapshot of a tenant into a new report
// file and returns its metadata.
func (m *Manager) Generate(ctx context.Context, tenantID string, format Format) (*GeneratedReport, error) {
	snapshot, err := m.source.Latest(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var content []byte
	switch format {
	case FormatPDF:
		content, err = m.pdf.Render(snapshot)
		if err != nil {
			return nil, err
		}
	default:
		content = m.markdown.Render(snapshot)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	id := uuid.NewString()
	path := filepath.Join(m.dir, id+format.extension())
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("tenant_id", snapshot.TenantID).
		Str("format", string(format)).
		Str("path", path).
		Msg("report generated")

	return &GeneratedReport{
		ID:          id,
		TenantID:    snapshot.TenantID,
		Format:      format,
		Path:        path,
		GeneratedAt: time.Now().UTC(),
		SizeBytes:   int64(len(content)),
	}, nil
}

// List returns the reports on disk, newest first.
func (m *Manager) List() ([]GeneratedReport, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	var reports []GeneratedReport
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := formatFromName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, GeneratedReport{
			ID:          strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Format:      format,
			Path:        filepath.Join(m.dir, entry.Name()),
			GeneratedAt: info.ModTime().UTC(),
			SizeBytes:   info.Size(),
		})
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].GeneratedAt.After(reports[j].GeneratedAt)
	})
	return reports, nil
}

// Open returns the path of a stored report by id, guarding against path
// escapes.
func (m *Manager) Open(id string) (string, error) {
	if id != filepath.Base(id) || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid report id %q", id)
	}
	for _, ext := range []string{".md", ".pdf"} {
		path := filepath.Join(m.dir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("report %q not found", id)
}

func formatFromName(name string) (Format, bool) {
	switch filepath.Ext(name) {
	case ".md":
		return FormatMarkdown, true
	case ".pdf":
		return FormatPDF, true
	default:
		return "", false
	}
}
