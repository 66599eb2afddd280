package api

import "time"

type PasswordLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TenantID string `json:"tenant_id,omitempty"`
}

type ServicePrincipalLoginRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TenantID     string `json:"tenant_id"`
}

type DeviceCodeResponse struct {
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	Message         string `json:"message"`
}

type AuthStatus struct {
	State     string     `json:"state"`
	TenantID  string     `json:"tenant_id,omitempty"`
	Method    string     `json:"method,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type DiagnosticCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

type Diagnostics struct {
	Authenticated bool              `json:"authenticated"`
	TenantID      string            `json:"tenant_id,omitempty"`
	Checks        []DiagnosticCheck `json:"checks"`
}

type Subscription struct {
	SubscriptionID string `json:"subscription_id"`
	DisplayName    string `json:"display_name"`
	State          string `json:"state"`
	TenantID       string `json:"tenant_id"`
}
