package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/rs/zerolog"
	"github.com/sectools/azrecon/pkg/handlers/respond"
	"github.com/sectools/azrecon/pkg/models/api"
	"github.com/sectools/azrecon/pkg/services/auth"
	"github.com/sectools/azrecon/pkg/services/collectors/securescore"
)

type Handler struct {
	session *auth.Session

	// scoreProbe checks whether Defender for Cloud answers for a
	// subscription, so diagnostics can flag missing reader permissions.
	scoreProbe func(ctx context.Context, cred azcore.TokenCredential, subscriptionID string) error
}

func NewHandler(session *auth.Session) *Handler {
	return &Handler{
		session: session,
		scoreProbe: func(ctx context.Context, cred azcore.TokenCredential, subscriptionID string) error {
			_, err := securescore.NewCollector(cred).Scores(ctx, []string{subscriptionID})
			return err
		},
	}
}

// BeginDeviceCode starts the device code flow and returns the prompt.
// The client polls Status (or calls Complete) to observe the outcome.
func (h *Handler) BeginDeviceCode(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.session.BeginDeviceCode(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("device code flow failed to start")
		respond.Error(w, r, http.StatusBadGateway, err.Error())
		return
	}
	respond.JSON(w, r, http.StatusAccepted, api.DeviceCodeResponse{
		UserCode:        prompt.UserCode,
		VerificationURL: prompt.VerificationURL,
		Message:         prompt.Message,
	})
}

func (h *Handler) LoginPassword(w http.ResponseWriter, r *http.Request) {
	var req api.PasswordLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respond.Error(w, r, http.StatusBadRequest, "username and password are required")
		return
	}
	status, err := h.session.LoginPassword(r.Context(), req.Username, req.Password, req.TenantID)
	h.writeLoginOutcome(w, r, status, err)
}

func (h *Handler) LoginServicePrincipal(w http.ResponseWriter, r *http.Request) {
	var req api.ServicePrincipalLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ClientID == "" || req.ClientSecret == "" || req.TenantID == "" {
		respond.Error(w, r, http.StatusBadRequest, "client_id, client_secret and tenant_id are required")
		return
	}
	status, err := h.session.LoginServicePrincipal(r.Context(), req.ClientID, req.ClientSecret, req.TenantID)
	h.writeLoginOutcome(w, r, status, err)
}

func (h *Handler) LoginCLI(w http.ResponseWriter, r *http.Request) {
	status, err := h.session.LoginCLI(r.Context())
	h.writeLoginOutcome(w, r, status, err)
}

func (h *Handler) writeLoginOutcome(w http.ResponseWriter, r *http.Request, status auth.Status, err error) {
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("login failed")
		respond.JSON(w, r, http.StatusUnauthorized, toAPIStatus(status))
		return
	}
	respond.JSON(w, r, http.StatusOK, toAPIStatus(status))
}

// Complete reports where the pending device code flow ended up. 202
// means the user has not finished the browser step yet.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	status := h.session.Status()
	switch status.State {
	case auth.StatePendingDeviceCode:
		respond.JSON(w, r, http.StatusAccepted, toAPIStatus(status))
	case auth.StateAuthenticated:
		respond.JSON(w, r, http.StatusOK, toAPIStatus(status))
	default:
		respond.JSON(w, r, http.StatusUnauthorized, toAPIStatus(status))
	}
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, toAPIStatus(h.session.Status()))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Logout()
	respond.JSON(w, r, http.StatusOK, toAPIStatus(h.session.Status()))
}

func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subscriptions, err := h.session.Subscriptions(r.Context())
	if errors.Is(err, auth.ErrNotAuthenticated) {
		respond.Error(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list subscriptions")
		respond.Error(w, r, http.StatusBadGateway, err.Error())
		return
	}

	response := make([]api.Subscription, 0, len(subscriptions))
	for _, sub := range subscriptions {
		response = append(response, api.Subscription{
			SubscriptionID: sub.SubscriptionID,
			DisplayName:    sub.DisplayName,
			State:          sub.State,
			TenantID:       sub.TenantID,
		})
	}
	respond.JSON(w, r, http.StatusOK, response)
}

// Diagnostics runs access self-checks for the current session: can we
// mint a credential, list subscriptions, and read a secure score. Each
// check reports ok or the error, always with a 200 response.
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	status := h.session.Status()
	out := api.Diagnostics{
		Authenticated: status.State == auth.StateAuthenticated,
		TenantID:      status.TenantID,
		Checks:        []api.DiagnosticCheck{},
	}

	cred, err := h.session.Credential()
	out.Checks = append(out.Checks, diagnosticCheck("credential", err))
	if err != nil {
		respond.JSON(w, r, http.StatusOK, out)
		return
	}

	subscriptions, err := h.session.Subscriptions(r.Context())
	subCheck := diagnosticCheck("subscriptions", err)
	if err == nil {
		subCheck.Detail = fmt.Sprintf("%d visible", len(subscriptions))
	}
	out.Checks = append(out.Checks, subCheck)
	if err != nil || len(subscriptions) == 0 {
		respond.JSON(w, r, http.StatusOK, out)
		return
	}

	err = h.scoreProbe(r.Context(), cred, subscriptions[0].SubscriptionID)
	out.Checks = append(out.Checks, diagnosticCheck("secure_score", err))
	respond.JSON(w, r, http.StatusOK, out)
}

func diagnosticCheck(name string, err error) api.DiagnosticCheck {
	check := api.DiagnosticCheck{Name: name, OK: err == nil}
	if err != nil {
		check.Detail = err.Error()
	}
	return check
}

func toAPIStatus(status auth.Status) api.AuthStatus {
	out := api.AuthStatus{
		State:    string(status.State),
		TenantID: status.TenantID,
		Method:   status.Method,
	}
	if !status.ExpiresAt.IsZero() {
		expires := status.ExpiresAt
		out.ExpiresAt = &expires
	}
	if status.Err != nil {
		out.Error = status.Err.Error()
	}
	return out
}
