package report

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	snapshot *domain.ScanSnapshot
	err      error
}

func (s *stubSource) Latest(_ context.Context, _ string) (*domain.ScanSnapshot, error) {
	return s.snapshot, s.err
}

func TestManager_GenerateMarkdown(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(&stubSource{snapshot: sampleSnapshot()}, dir)

	generated, err := m.Generate(context.Background(), "tenant-1", FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", generated.TenantID)
	assert.Equal(t, FormatMarkdown, generated.Format)

	content, err := os.ReadFile(generated.Path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Security Posture Report")
}

func TestManager_GeneratePDF(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(&stubSource{snapshot: sampleSnapshot()}, dir)

	generated, err := m.Generate(context.Background(), "tenant-1", FormatPDF)
	require.NoError(t, err)

	content, err := os.ReadFile(generated.Path)
	require.NoError(t, err)
	assert.True(t, len(content) > 0)
	assert.Equal(t, "%PDF", string(content[:4]))
}

func TestManager_ListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(&stubSource{snapshot: sampleSnapshot()}, dir)

	first, err := m.Generate(context.Background(), "tenant-1", FormatMarkdown)
	require.NoError(t, err)
	// ModTime granularity on some filesystems is one second
	require.NoError(t, os.Chtimes(first.Path, time.Now().Add(-time.Minute), time.Now().Add(-time.Minute)))
	second, err := m.Generate(context.Background(), "tenant-1", FormatMarkdown)
	require.NoError(t, err)

	reports, err := m.List()
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, second.ID, reports[0].ID)
	assert.Equal(t, first.ID, reports[1].ID)
}

func TestManager_ListMissingDir(t *testing.T) {
	m := NewManager(&stubSource{}, "/nonexistent/reports")
	reports, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestManager_Open(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(&stubSource{snapshot: sampleSnapshot()}, dir)

	generated, err := m.Generate(context.Background(), "tenant-1", FormatMarkdown)
	require.NoError(t, err)

	path, err := m.Open(generated.ID)
	require.NoError(t, err)
	assert.Equal(t, generated.Path, path)

	_, err = m.Open("../../etc/passwd")
	assert.Error(t, err)

	_, err = m.Open("does-not-exist")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"", "md", "markdown", "Markdown"} {
		format, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, FormatMarkdown, format)
	}

	format, err := ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, format)

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}
