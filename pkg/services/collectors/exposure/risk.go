package exposure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sectools/azrecon/pkg/models/domain"
)

const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"

	wideRangeThreshold = 100
)

// dangerousPorts are services that should never be reachable from the
// internet on their well-known port.
var dangerousPorts = map[int]string{
	22:    "SSH",
	135:   "RPC",
	445:   "SMB",
	1433:  "SQL Server",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	5985:  "WinRM",
	5986:  "WinRM",
	6379:  "Redis",
	27017: "MongoDB",
}

var internetPrefixes = map[string]bool{
	"*":         true,
	"0.0.0.0/0": true,
	"internet":  true,
}

// AnalyzeRules grades a group's inbound allow rules. Only rules open to
// the internet count; the group's level is the worst rule's level.
func AnalyzeRules(rules []domain.SecurityRule) (level string, risky []domain.SecurityRule, reasons []string) {
	level = RiskLow
	for _, rule := range rules {
		ruleLevel, reason := gradeRule(rule)
		if ruleLevel == "" {
			continue
		}
		risky = append(risky, rule)
		reasons = append(reasons, reason)
		if ruleLevel == RiskHigh || (ruleLevel == RiskMedium && level == RiskLow) {
			level = ruleLevel
		}
	}
	return level, risky, reasons
}

func gradeRule(rule domain.SecurityRule) (string, string) {
	if !strings.EqualFold(rule.Access, "Allow") || !strings.EqualFold(rule.Direction, "Inbound") {
		return "", ""
	}
	if !internetPrefixes[strings.ToLower(strings.TrimSpace(rule.SourceAddressPrefix))] {
		return "", ""
	}

	ports := rule.DestinationPortRange
	if ports == "" || strings.Contains(ports, "*") {
		return RiskHigh, fmt.Sprintf("rule %q allows all ports from the internet", rule.Name)
	}

	var width int
	for _, span := range strings.Split(ports, ",") {
		lo, hi, ok := parseRange(span)
		if !ok {
			continue
		}
		width += hi - lo + 1
		for port, service := range dangerousPorts {
			if port >= lo && port <= hi {
				return RiskHigh, fmt.Sprintf("rule %q exposes %s (port %d) to the internet", rule.Name, service, port)
			}
		}
	}

	if width > wideRangeThreshold {
		return RiskMedium, fmt.Sprintf("rule %q opens %d ports to the internet", rule.Name, width)
	}
	return RiskMedium, fmt.Sprintf("rule %q allows inbound traffic from the internet", rule.Name)
}

func parseRange(span string) (lo, hi int, ok bool) {
	span = strings.TrimSpace(span)
	if lo, err := strconv.Atoi(span); err == nil {
		return lo, lo, true
	}
	parts := strings.SplitN(span, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	hi, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || hi < lo {
		return 0, 0, false
	}
	return lo, hi, true
}
