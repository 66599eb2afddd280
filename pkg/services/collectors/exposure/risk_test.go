package exposure

import (
	"fmt"
	"testing"

	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inboundAllow(name, source, ports string) domain.SecurityRule {
	return domain.SecurityRule{
		Name:                 name,
		Direction:            "Inbound",
		Access:               "Allow",
		Protocol:             "Tcp",
		SourceAddressPrefix:  source,
		DestinationPortRange: ports,
	}
}

func TestAnalyzeRules(t *testing.T) {
	tests := []struct {
		name      string
		rules     []domain.SecurityRule
		wantLevel string
		wantRisky int
	}{
		{
			name:      "no rules",
			wantLevel: RiskLow,
		},
		{
			name: "internal traffic only",
			rules: []domain.SecurityRule{
				inboundAllow("vnet-ssh", "10.0.0.0/8", "22"),
			},
			wantLevel: RiskLow,
		},
		{
			name: "deny rules are ignored",
			rules: []domain.SecurityRule{
				{Name: "deny-all", Direction: "Inbound", Access: "Deny", SourceAddressPrefix: "*", DestinationPortRange: "*"},
			},
			wantLevel: RiskLow,
		},
		{
			name: "outbound rules are ignored",
			rules: []domain.SecurityRule{
				{Name: "egress", Direction: "Outbound", Access: "Allow", SourceAddressPrefix: "*", DestinationPortRange: "*"},
			},
			wantLevel: RiskLow,
		},
		{
			name: "ssh open to the internet",
			rules: []domain.SecurityRule{
				inboundAllow("allow-ssh", "*", "22"),
			},
			wantLevel: RiskHigh,
			wantRisky: 1,
		},
		{
			name: "rdp via Internet service tag",
			rules: []domain.SecurityRule{
				inboundAllow("allow-rdp", "Internet", "3389"),
			},
			wantLevel: RiskHigh,
			wantRisky: 1,
		},
		{
			name: "dangerous port inside a range",
			rules: []domain.SecurityRule{
				inboundAllow("allow-db", "0.0.0.0/0", "1430-1440"),
			},
			wantLevel: RiskHigh,
			wantRisky: 1,
		},
		{
			name: "wildcard ports",
			rules: []domain.SecurityRule{
				inboundAllow("allow-any", "*", "*"),
			},
			wantLevel: RiskHigh,
			wantRisky: 1,
		},
		{
			name: "wide range without dangerous ports",
			rules: []domain.SecurityRule{
				inboundAllow("allow-ephemeral", "*", "30000-32767"),
			},
			wantLevel: RiskMedium,
			wantRisky: 1,
		},
		{
			name: "narrow web exposure",
			rules: []domain.SecurityRule{
				inboundAllow("allow-https", "*", "443"),
			},
			wantLevel: RiskMedium,
			wantRisky: 1,
		},
		{
			name: "worst rule wins",
			rules: []domain.SecurityRule{
				inboundAllow("allow-https", "*", "443"),
				inboundAllow("allow-ssh", "*", "22"),
			},
			wantLevel: RiskHigh,
			wantRisky: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, risky, reasons := AnalyzeRules(tt.rules)
			assert.Equal(t, tt.wantLevel, level)
			assert.Len(t, risky, tt.wantRisky)
			assert.Len(t, reasons, tt.wantRisky)
		})
	}
}

func TestAnalyzeRules_ReasonNamesService(t *testing.T) {
	_, _, reasons := AnalyzeRules([]domain.SecurityRule{
		inboundAllow("allow-redis", "*", "6379"),
	})
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "Redis")
	assert.Contains(t, reasons[0], "6379")
}

func TestAnalyzeRules_AllDangerousPortsFlagged(t *testing.T) {
	for port, service := range dangerousPorts {
		t.Run(fmt.Sprintf("%d_%s", port, service), func(t *testing.T) {
			level, _, _ := AnalyzeRules([]domain.SecurityRule{
				inboundAllow("r", "*", fmt.Sprintf("%d", port)),
			})
			assert.Equal(t, RiskHigh, level)
		})
	}
}

func TestParseRange(t *testing.T) {
	lo, hi, ok := parseRange("80")
	require.True(t, ok)
	assert.Equal(t, 80, lo)
	assert.Equal(t, 80, hi)

	lo, hi, ok = parseRange(" 1000 - 2000 ")
	require.True(t, ok)
	assert.Equal(t, 1000, lo)
	assert.Equal(t, 2000, hi)

	_, _, ok = parseRange("not-a-port")
	assert.False(t, ok)

	_, _, ok = parseRange("2000-1000")
	assert.False(t, ok)
}
