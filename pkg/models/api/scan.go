package api

import "time"

// ScanResult is the envelope returned when a scan completes.
type ScanResult struct {
	TenantID        string    `json:"tenant_id"`
	ScanTimestamp   time.Time `json:"scan_timestamp"`
	Subscriptions   int       `json:"subscriptions,omitempty"`
	RoleAssignments int       `json:"role_assignments"`
	Recommendations int       `json:"recommendations"`
	PublicResources int       `json:"public_resources"`
	Users           int       `json:"users"`
}

// Error is the uniform error body.
type Error struct {
	Error string `json:"error"`
}
