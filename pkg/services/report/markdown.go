package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/sectools/azrecon/pkg/services/identity"
)

const (
	topRolesPerCategory = 5
	maxTableRows        = 25
)

var categoryLabels = map[domain.PrincipalCategory]string{
	domain.CategoryUser:             "Users",
	domain.CategoryServicePrincipal: "Service Principals",
	domain.CategoryManagedIdentity:  "Managed Identities",
	domain.CategoryGroup:            "Groups",
	domain.CategoryUnknownOrDeleted: "Unknown / Deleted",
}

// MarkdownRenderer turns a snapshot into a markdown report.
type MarkdownRenderer struct{}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

func (r *MarkdownRenderer) Render(snapshot *domain.ScanSnapshot) []byte {
	var b strings.Builder
	summary := Summarize(snapshot)

	fmt.Fprintf(&b, "# Security Posture Report\n\n")
	fmt.Fprintf(&b, "- **Tenant:** %s\n", snapshot.TenantID)
	fmt.Fprintf(&b, "- **Scan time:** %s\n\n", snapshot.ScanTimestamp.UTC().Format("2006-01-02 15:04:05 UTC"))

	r.writeSummary(&b, summary)
	r.writeSecureScore(&b, snapshot)
	r.writeRecommendations(&b, snapshot.Recommendations)
	r.writeExposure(&b, snapshot)
	r.writeIdentity(&b, snapshot)
	r.writeCompliance(&b, snapshot)

	return []byte(b.String())
}

func (r *MarkdownRenderer) writeSummary(b *strings.Builder, s Summary) {
	fmt.Fprintf(b, "## Summary\n\n")
	fmt.Fprintf(b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Secure score | %.1f%% |\n", s.SecureScorePercent)
	fmt.Fprintf(b, "| Open recommendations | %d |\n", s.Recommendations)
	fmt.Fprintf(b, "| High severity findings | %d |\n", s.HighSeverityFindings)
	fmt.Fprintf(b, "| Internet-facing resources | %d |\n", s.PublicResources)
	fmt.Fprintf(b, "| High-risk network security groups | %d |\n", s.HighRiskNetworkGroups)
	fmt.Fprintf(b, "| Privileged role assignments | %d |\n", s.PrivilegedAssignments)
	fmt.Fprintf(b, "| Guest users | %d |\n", s.GuestUsers)
	fmt.Fprintf(b, "| Users without MFA | %d |\n", s.UsersWithoutMFA)
	fmt.Fprintf(b, "| Non-compliant resources | %d |\n\n", s.NonCompliantResources)
}

func (r *MarkdownRenderer) writeSecureScore(b *strings.Builder, snapshot *domain.ScanSnapshot) {
	score := snapshot.SecureScore
	fmt.Fprintf(b, "## Secure Score\n\n")
	fmt.Fprintf(b, "**%.1f / %.1f (%.1f%%)**\n\n", score.CurrentScore, score.MaxScore, score.Percentage)

	if len(score.ControlScores) == 0 {
		return
	}
	controls := append([]domain.ControlScore(nil), score.ControlScores...)
	sort.Slice(controls, func(i, j int) bool { return controls[i].Percentage < controls[j].Percentage })

	fmt.Fprintf(b, "| Control | Score | Max | %% |\n|---|---|---|---|\n")
	for i, c := range controls {
		if i >= maxTableRows {
			fmt.Fprintf(b, "\n_%d more controls omitted._\n", len(controls)-maxTableRows)
			break
		}
		fmt.Fprintf(b, "| %s | %.1f | %.1f | %.1f%% |\n", escapeCell(c.DisplayName), c.CurrentScore, c.MaxScore, c.Percentage)
	}
	b.WriteString("\n")
}

func (r *MarkdownRenderer) writeRecommendations(b *strings.Builder, recs []domain.Recommendation) {
	fmt.Fprintf(b, "## Recommendations\n\n")
	if len(recs) == 0 {
		fmt.Fprintf(b, "No open recommendations.\n\n")
		return
	}

	ordered := append([]domain.Recommendation(nil), recs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return severityRank(ordered[i].Severity) < severityRank(ordered[j].Severity)
	})

	fmt.Fprintf(b, "| Severity | Recommendation | Category |\n|---|---|---|\n")
	for i, rec := range ordered {
		if i >= maxTableRows {
			fmt.Fprintf(b, "\n_%d more recommendations omitted._\n", len(ordered)-maxTableRows)
			break
		}
		fmt.Fprintf(b, "| %s | %s | %s |\n", rec.Severity, escapeCell(rec.Name), rec.Category)
	}
	b.WriteString("\n")
}

func (r *MarkdownRenderer) writeExposure(b *strings.Builder, snapshot *domain.ScanSnapshot) {
	fmt.Fprintf(b, "## Internet Exposure\n\n")

	if len(snapshot.PublicResources) == 0 {
		fmt.Fprintf(b, "No internet-facing resources found.\n\n")
	} else {
		fmt.Fprintf(b, "| Resource | Type | Public IP | Resource Group |\n|---|---|---|---|\n")
		for i, res := range snapshot.PublicResources {
			if i >= maxTableRows {
				fmt.Fprintf(b, "\n_%d more resources omitted._\n", len(snapshot.PublicResources)-maxTableRows)
				break
			}
			fmt.Fprintf(b, "| %s | %s | %s | %s |\n", escapeCell(res.ResourceName), res.ResourceType, res.PublicIP, res.ResourceGroup)
		}
		b.WriteString("\n")
	}

	var risky []domain.NetworkSecurityGroup
	for _, nsg := range snapshot.NetworkSecurityGroups {
		if nsg.RiskLevel != "Low" {
			risky = append(risky, nsg)
		}
	}
	fmt.Fprintf(b, "### Network Security Groups at Risk\n\n")
	if len(risky) == 0 {
		fmt.Fprintf(b, "No risky network security groups found.\n\n")
		return
	}
	sort.SliceStable(risky, func(i, j int) bool {
		return riskRank(risky[i].RiskLevel) < riskRank(risky[j].RiskLevel)
	})
	for _, nsg := range risky {
		fmt.Fprintf(b, "- **%s** (%s, %s)\n", nsg.Name, nsg.RiskLevel, nsg.ResourceGroup)
		for _, reason := range nsg.RiskReasons {
			fmt.Fprintf(b, "  - %s\n", reason)
		}
	}
	b.WriteString("\n")
}

func (r *MarkdownRenderer) writeIdentity(b *strings.Builder, snapshot *domain.ScanSnapshot) {
	fmt.Fprintf(b, "## Identity\n\n")
	fmt.Fprintf(b, "%d role assignments across %d categories.\n\n",
		snapshot.IdentityBreakdown.Total(), len(snapshot.IdentityBreakdown))

	for _, category := range domain.Categories() {
		breakdown, ok := snapshot.IdentityBreakdown[category]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "### %s (%d)\n\n", categoryLabels[category], breakdown.Count)
		for _, role := range identity.TopRoles(breakdown, topRolesPerCategory) {
			fmt.Fprintf(b, "- %s: %d\n", role.Name, role.Count)
		}
		b.WriteString("\n")
	}

	guests := 0
	noMFA := 0
	for _, u := range snapshot.Users {
		if u.IsGuest {
			guests++
		}
		if !u.MFAEnabled {
			noMFA++
		}
	}
	fmt.Fprintf(b, "%d directory users: %d guests, %d without MFA.\n\n", len(snapshot.Users), guests, noMFA)
}

func (r *MarkdownRenderer) writeCompliance(b *strings.Builder, snapshot *domain.ScanSnapshot) {
	fmt.Fprintf(b, "## Policy Compliance\n\n")
	fmt.Fprintf(b, "%d policy assignments in scope.\n\n", len(snapshot.PolicyAssignments))

	nonCompliant := make(map[string]int)
	for _, cr := range snapshot.ComplianceResults {
		if strings.EqualFold(cr.ComplianceState, "NonCompliant") {
			nonCompliant[cr.PolicyAssignmentName]++
		}
	}
	if len(nonCompliant) == 0 {
		fmt.Fprintf(b, "All evaluated resources are compliant.\n")
		return
	}

	names := make([]string, 0, len(nonCompliant))
	for name := range nonCompliant {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(b, "| Policy | Non-compliant resources |\n|---|---|\n")
	for _, name := range names {
		fmt.Fprintf(b, "| %s | %d |\n", escapeCell(name), nonCompliant[name])
	}
}

func severityRank(severity string) int {
	switch strings.ToLower(severity) {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

func riskRank(level string) int {
	switch level {
	case "High":
		return 0
	case "Medium":
		return 1
	default:
		return 2
	}
}

// escapeCell keeps resource names from breaking table layout.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
