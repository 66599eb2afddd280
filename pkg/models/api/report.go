package api

import "time"

type GenerateReportRequest struct {
	Format string `json:"format"`
}

type Report struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id,omitempty"`
	Format      string    `json:"format"`
	Path        string    `json:"path"`
	GeneratedAt time.Time `json:"generated_at"`
	SizeBytes   int64     `json:"size_bytes"`
}
