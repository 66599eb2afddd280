package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/sectools/azrecon/pkg/services/identity"
)

var (
	pdfPrimary     = [3]int{30, 58, 95}
	pdfAccent      = [3]int{46, 204, 113}
	pdfWarning     = [3]int{241, 196, 15}
	pdfDanger      = [3]int{231, 76, 60}
	pdfTextDark    = [3]int{44, 62, 80}
	pdfTextMuted   = [3]int{127, 140, 141}
	pdfTableHeader = [3]int{30, 58, 95}
	pdfTableAlt    = [3]int{241, 245, 249}
)

// PDFRenderer turns a snapshot into a PDF report.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(snapshot *domain.ScanSnapshot) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)

	summary := Summarize(snapshot)

	r.writeCoverPage(pdf, snapshot, summary)

	pdf.AddPage()
	r.addPageHeader(pdf, snapshot, "Summary")
	r.writeSummary(pdf, summary)

	pdf.AddPage()
	r.addPageHeader(pdf, snapshot, "Recommendations")
	r.writeRecommendations(pdf, snapshot.Recommendations)

	pdf.AddPage()
	r.addPageHeader(pdf, snapshot, "Internet Exposure")
	r.writeExposure(pdf, snapshot)

	pdf.AddPage()
	r.addPageHeader(pdf, snapshot, "Identity")
	r.writeIdentity(pdf, snapshot)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output error: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) writeCoverPage(pdf *fpdf.Fpdf, snapshot *domain.ScanSnapshot, summary Summary) {
	pdf.AddPage()
	pageWidth, pageHeight := pdf.GetPageSize()

	pdf.SetFillColor(pdfPrimary[0], pdfPrimary[1], pdfPrimary[2])
	pdf.Rect(0, 0, pageWidth, 8, "F")

	pdf.SetY(60)
	pdf.SetFont("Arial", "B", 28)
	pdf.SetTextColor(pdfTextDark[0], pdfTextDark[1], pdfTextDark[2])
	pdf.CellFormat(0, 12, "Security Posture Report", "", 1, "C", false, 0, "")

	pdf.SetY(90)
	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(pdfTextMuted[0], pdfTextMuted[1], pdfTextMuted[2])
	pdf.CellFormat(0, 7, "TENANT", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(pdfTextDark[0], pdfTextDark[1], pdfTextDark[2])
	pdf.CellFormat(0, 10, snapshot.TenantID, "", 1, "C", false, 0, "")

	scoreColor := scoreStatColor(summary.SecureScorePercent)
	pdf.SetY(130)
	pdf.SetFont("Arial", "B", 36)
	pdf.SetTextColor(scoreColor[0], scoreColor[1], scoreColor[2])
	pdf.CellFormat(0, 16, fmt.Sprintf("%.1f%%", summary.SecureScorePercent), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(pdfTextMuted[0], pdfTextMuted[1], pdfTextMuted[2])
	pdf.CellFormat(0, 7, "Secure Score", "", 1, "C", false, 0, "")

	pdf.SetY(pageHeight - 50)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Scanned: %s", snapshot.ScanTimestamp.UTC().Format("January 2, 2006 at 15:04 UTC")), "", 1, "C", false, 0, "")

	pdf.SetFillColor(pdfPrimary[0], pdfPrimary[1], pdfPrimary[2])
	pdf.Rect(0, pageHeight-8, pageWidth, 8, "F")
}

func (r *PDFRenderer) addPageHeader(pdf *fpdf.Fpdf, snapshot *domain.ScanSnapshot, section string) {
	pageWidth, _ := pdf.GetPageSize()

	pdf.SetDrawColor(pdfPrimary[0], pdfPrimary[1], pdfPrimary[2])
	pdf.SetLineWidth(0.5)
	pdf.Line(20, 15, pageWidth-20, 15)

	pdf.SetY(18)
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(pdfPrimary[0], pdfPrimary[1], pdfPrimary[2])
	pdf.CellFormat(0, 5, "SECURITY POSTURE REPORT", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(pdfTextMuted[0], pdfTextMuted[1], pdfTextMuted[2])
	pdf.CellFormat(0, 5, snapshot.TenantID, "", 1, "R", false, 0, "")

	pdf.SetY(30)
	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(pdfTextDark[0], pdfTextDark[1], pdfTextDark[2])
	pdf.CellFormat(0, 10, section, "", 1, "L", false, 0, "")
	pdf.Ln(5)
}

func (r *PDFRenderer) writeSummary(pdf *fpdf.Fpdf, summary Summary) {
	rows := []struct {
		label string
		value string
		color [3]int
	}{
		{"Secure score", fmt.Sprintf("%.1f%%", summary.SecureScorePercent), scoreStatColor(summary.SecureScorePercent)},
		{"Open recommendations", fmt.Sprintf("%d", summary.Recommendations), countStatColor(summary.Recommendations)},
		{"High severity findings", fmt.Sprintf("%d", summary.HighSeverityFindings), countStatColor(summary.HighSeverityFindings)},
		{"Internet-facing resources", fmt.Sprintf("%d", summary.PublicResources), pdfTextDark},
		{"High-risk network security groups", fmt.Sprintf("%d", summary.HighRiskNetworkGroups), countStatColor(summary.HighRiskNetworkGroups)},
		{"Privileged role assignments", fmt.Sprintf("%d", summary.PrivilegedAssignments), pdfTextDark},
		{"Guest users", fmt.Sprintf("%d", summary.GuestUsers), pdfTextDark},
		{"Users without MFA", fmt.Sprintf("%d", summary.UsersWithoutMFA), countStatColor(summary.UsersWithoutMFA)},
		{"Non-compliant resources", fmt.Sprintf("%d", summary.NonCompliantResources), countStatColor(summary.NonCompliantResources)},
	}

	pdf.SetFont("Arial", "", 11)
	for i, row := range rows {
		if i%2 == 1 {
			pdf.SetFillColor(pdfTableAlt[0], pdfTableAlt[1], pdfTableAlt[2])
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetTextColor(pdfTextDark[0], pdfTextDark[1], pdfTextDark[2])
		pdf.CellFormat(120, 9, row.label, "", 0, "L", true, 0, "")
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(row.color[0], row.color[1], row.color[2])
		pdf.CellFormat(0, 9, row.value, "", 1, "R", true, 0, "")
		pdf.SetFont("Arial", "", 11)
	}
}

func (r *PDFRenderer) writeRecommendations(pdf *fpdf.Fpdf, recs []domain.Recommendation) {
	if len(recs) == 0 {
		pdf.SetFont("Arial", "I", 11)
		pdf.SetTextColor(pdfTextMuted[0], pdfTextMuted[1], pdfTextMuted[2])
		pdf.CellFormat(0, 10, "No open recommendations.", "", 1, "L", false, 0, "")
		return
	}

	ordered := append([]domain.Recommendation(nil), recs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return severityRank(ordered[i].Severity) < severityRank(ordered[j].Severity)
	})

	pdf.SetFillColor(pdfTableHeader[0], pdfTableHeader[1], pdfTableHeader[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(25, 7, "Severity", "1", 0, "C", true, 0, "")
	pdf.CellFormat(110, 7, "Recommendation", "1", 0, "C", true, 0, "")
	pdf.CellFormat(0, 7, "Category", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 8)
	fill := false
	for _, rec := range ordered {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		if fill {
			pdf.SetFillColor(pdfTableAlt[0], pdfTableAlt[1], pdfTableAlt[2])
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		sevColor := severityStatColor(rec.Severity)
		pdf.SetTextColor(sevColor[0], sevColor[1], sevColor[2])
		pdf.CellFormat(25, 6, rec.Severity, "1", 0, "C", fill, 0, "")
		pdf.SetTextColor(pdfTextDark[0], pdfTextDark[1], pdfTextDark[2])
		pdf.CellFormat(110, 6, truncate(rec.Name, 70), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(0, 6, truncate(rec.Category, 20), "1", 1, "L", fill, 0, "")
		fill = !fill
	}
}

func (r *PDFRenderer) writeExposure(pdf *fpdf.Fpdf, snapshot *domain.ScanSnapshot) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(pdfTextDark[0], pdfTextDark[1], pdfTextDark[2])
	pdf.CellFormat(0, 8, fmt.Sprintf("Internet-facing resources: %d", len(snapshot.PublicResources)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 8)
	for i, res := range snapshot.PublicResources {
		if i >= 40 {
			pdf.SetTextColor(pdfTextMuted[0], pdfTextMuted[1], pdfTextMuted[2])
			pdf.CellFormat(0, 5, fmt.Sprintf("... and %d more", len(snapshot.PublicResources)-40), "", 1, "L", false, 0, "")
			break
		}
		pdf.SetTextColor(pdfTextDark[0], pdfTextDark[1], pdfTextDark[2])
		line := fmt.Sprintf("%s  (%s)", res.ResourceName, res.ResourceType)
		if res.PublicIP != "" {
			line += "  " + res.PublicIP
		}
		pdf.CellFormat(0, 5, truncate(line, 100), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(pdfTextDark[0], pdfTextDark[1], pdfTextDark[2])
	pdf.CellFormat(0, 8, "Network security groups at risk", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, nsg := range snapshot.NetworkSecurityGroups {
		if nsg.RiskLevel == "Low" {
			continue
		}
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}
		levelColor := riskStatColor(nsg.RiskLevel)
		pdf.SetFont("Arial", "B", 9)
		pdf.SetTextColor(levelColor[0], levelColor[1], levelColor[2])
		pdf.CellFormat(20, 6, nsg.RiskLevel, "", 0, "L", false, 0, "")
		pdf.SetTextColor(pdfTextDark[0], pdfTextDark[1], pdfTextDark[2])
		pdf.CellFormat(0, 6, fmt.Sprintf("%s  (%s)", nsg.Name, nsg.ResourceGroup), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(pdfTextMuted[0], pdfTextMuted[1], pdfTextMuted[2])
		for _, reason := range nsg.RiskReasons {
			pdf.SetX(40)
			pdf.CellFormat(0, 5, truncate(reason, 90), "", 1, "L", false, 0, "")
		}
	}
}

func (r *PDFRenderer) writeIdentity(pdf *fpdf.Fpdf, snapshot *domain.ScanSnapshot) {
	pdf.SetFont("Arial", "", 11)
	pdf.SetTextColor(pdfTextDark[0], pdfTextDark[1], pdfTextDark[2])
	pdf.CellFormat(0, 7, fmt.Sprintf("%d role assignments across %d categories",
		snapshot.IdentityBreakdown.Total(), len(snapshot.IdentityBreakdown)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	for _, category := range domain.Categories() {
		breakdown, ok := snapshot.IdentityBreakdown[category]
		if !ok {
			continue
		}
		if pdf.GetY() > 240 {
			pdf.AddPage()
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(pdfPrimary[0], pdfPrimary[1], pdfPrimary[2])
		pdf.CellFormat(0, 7, fmt.Sprintf("%s (%d)", categoryLabels[category], breakdown.Count), "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(pdfTextDark[0], pdfTextDark[1], pdfTextDark[2])
		for _, role := range identity.TopRoles(breakdown, topRolesPerCategory) {
			pdf.SetX(28)
			pdf.CellFormat(0, 5, fmt.Sprintf("%s: %d", role.Name, role.Count), "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
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
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(pdfTextMuted[0], pdfTextMuted[1], pdfTextMuted[2])
	pdf.CellFormat(0, 6, fmt.Sprintf("%d directory users, %d guests, %d without MFA", len(snapshot.Users), guests, noMFA), "", 1, "L", false, 0, "")
}

func scoreStatColor(percent float64) [3]int {
	if percent >= 70 {
		return pdfAccent
	}
	if percent >= 40 {
		return pdfWarning
	}
	return pdfDanger
}

func countStatColor(count int) [3]int {
	if count > 0 {
		return pdfDanger
	}
	return pdfAccent
}

func severityStatColor(severity string) [3]int {
	switch strings.ToLower(severity) {
	case "high":
		return pdfDanger
	case "medium":
		return pdfWarning
	default:
		return pdfTextMuted
	}
}

func riskStatColor(level string) [3]int {
	switch level {
	case "High":
		return pdfDanger
	case "Medium":
		return pdfWarning
	default:
		return pdfAccent
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
