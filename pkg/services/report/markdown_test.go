package report

import (
	"strings"
	"testing"

	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/stretchr/testify/assert"
)

func TestMarkdownRenderer_Render(t *testing.T) {
	out := string(NewMarkdownRenderer().Render(sampleSnapshot()))

	assert.Contains(t, out, "# Security Posture Report")
	assert.Contains(t, out, "tenant-1")
	assert.Contains(t, out, "2025-06-01 12:00:00 UTC")

	assert.Contains(t, out, "| Secure score | 55.2% |")
	assert.Contains(t, out, "| High severity findings | 1 |")

	// high severity recommendations come first
	highIdx := strings.Index(out, "Enable MFA for accounts")
	medIdx := strings.Index(out, "Apply disk encryption")
	assert.Greater(t, medIdx, highIdx)

	assert.Contains(t, out, "**nsg-open** (High")
	assert.Contains(t, out, "exposes SSH (port 22)")
	assert.NotContains(t, out, "nsg-safe")

	assert.Contains(t, out, "### Users (2)")
	assert.Contains(t, out, "- Owner: 1")

	assert.Contains(t, out, "| require-tags | 1 |")
}

func TestMarkdownRenderer_EmptySections(t *testing.T) {
	snapshot := &domain.ScanSnapshot{TenantID: "tenant-1"}
	out := string(NewMarkdownRenderer().Render(snapshot))

	assert.Contains(t, out, "No open recommendations.")
	assert.Contains(t, out, "No internet-facing resources found.")
	assert.Contains(t, out, "No risky network security groups found.")
	assert.Contains(t, out, "All evaluated resources are compliant.")
}

func TestEscapeCell(t *testing.T) {
	assert.Equal(t, "a\\|b", escapeCell("a|b"))
	assert.Equal(t, "plain", escapeCell("plain"))
}
