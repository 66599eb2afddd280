package domain

import "time"

// SecureScore is the provider-computed aggregate security rating,
// summed across subscriptions.
type SecureScore struct {
	CurrentScore  float64        `json:"current_score"`
	MaxScore      float64        `json:"max_score"`
	Percentage    float64        `json:"percentage"`
	ControlScores []ControlScore `json:"control_scores"`
}

// ControlScore is the per-control breakdown within a subscription.
type ControlScore struct {
	SubscriptionID string  `json:"subscription_id"`
	ScoreName      string  `json:"score_name"`
	DisplayName    string  `json:"display_name"`
	CurrentScore   float64 `json:"current_score"`
	MaxScore       float64 `json:"max_score"`
	Percentage     float64 `json:"percentage"`
}

// Recommendation is a single security assessment from the provider.
type Recommendation struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Severity          string `json:"severity"`
	Category          string `json:"category"`
	State             string `json:"state"`
	AffectedResources int    `json:"affected_resources"`
}

// PublicResource is a resource reachable from the internet.
type PublicResource struct {
	ResourceID     string   `json:"resource_id"`
	ResourceName   string   `json:"resource_name"`
	ResourceType   string   `json:"resource_type"`
	PublicIP       string   `json:"public_ip,omitempty"`
	Ports          []int    `json:"ports"`
	Protocols      []string `json:"protocols"`
	SubscriptionID string   `json:"subscription_id"`
	ResourceGroup  string   `json:"resource_group"`
}

// SecurityRule is one inbound/outbound rule of a network security group.
type SecurityRule struct {
	Name                     string `json:"name"`
	Priority                 int32  `json:"priority"`
	Direction                string `json:"direction"`
	Access                   string `json:"access"`
	Protocol                 string `json:"protocol"`
	SourcePortRange          string `json:"source_port_range"`
	DestinationPortRange     string `json:"destination_port_range"`
	SourceAddressPrefix      string `json:"source_address_prefix"`
	DestinationAddressPrefix string `json:"destination_address_prefix"`
}

// NetworkSecurityGroup is an NSG plus its risk assessment.
type NetworkSecurityGroup struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Location       string         `json:"location"`
	ResourceGroup  string         `json:"resource_group"`
	SubscriptionID string         `json:"subscription_id"`
	Rules          []SecurityRule `json:"rules"`
	RiskLevel      string         `json:"risk_level"`
	RiskyRules     []SecurityRule `json:"risky_rules"`
	RiskReasons    []string       `json:"risk_reasons"`
}

// UserInfo describes a directory user.
type UserInfo struct {
	ID                string `json:"id"`
	DisplayName       string `json:"display_name"`
	UserPrincipalName string `json:"user_principal_name"`
	Mail              string `json:"mail,omitempty"`
	IsGuest           bool   `json:"is_guest"`
	MFAEnabled        bool   `json:"mfa_enabled"`
}

// PolicyAssignment is a policy bound to a scope.
type PolicyAssignment struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	DisplayName        string `json:"display_name"`
	PolicyDefinitionID string `json:"policy_definition_id"`
	Scope              string `json:"scope"`
	EnforcementMode    string `json:"enforcement_mode"`
}

// ComplianceResult is the compliance state of one resource against one
// policy assignment.
type ComplianceResult struct {
	PolicyAssignmentID   string `json:"policy_assignment_id"`
	PolicyAssignmentName string `json:"policy_assignment_name"`
	ResourceID           string `json:"resource_id"`
	ComplianceState      string `json:"compliance_state"`
	ResourceType         string `json:"resource_type"`
	ResourceLocation     string `json:"resource_location"`
}

// Subscription is a provider subscription visible to the session.
type Subscription struct {
	SubscriptionID string `json:"subscription_id"`
	DisplayName    string `json:"display_name"`
	State          string `json:"state"`
	TenantID       string `json:"tenant_id"`
}

// ScanSnapshot is one immutable capture of all scan feeds for a tenant.
// Field names are a wire contract: reports are generated from stored
// historical snapshots, so they must stay stable across versions.
type ScanSnapshot struct {
	TenantID              string                 `json:"tenant_id"`
	ScanTimestamp         time.Time              `json:"scan_timestamp"`
	SecureScore           SecureScore            `json:"secure_score"`
	Recommendations       []Recommendation       `json:"recommendations"`
	PublicResources       []PublicResource       `json:"public_resources"`
	NetworkSecurityGroups []NetworkSecurityGroup `json:"network_security_groups"`
	Users                 []UserInfo             `json:"users"`
	IdentityBreakdown     IdentityBreakdown      `json:"identity_breakdown"`
	RoleAssignments       []RoleAssignment       `json:"role_assignments"`
	PolicyAssignments     []PolicyAssignment     `json:"policy_assignments"`
	ComplianceResults     []ComplianceResult     `json:"compliance_results"`
}
