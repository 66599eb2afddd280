package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/rs/zerolog"

	"github.com/sectools/azrecon/pkg/models/domain"
)

const (
	// Azure CLI's well-known public client id; usable for delegated flows
	// without registering an application.
	DefaultClientID = "04b07795-8ddb-461a-bbee-02f9e1bf7b46"

	armScope = "https://management.azure.com/.default"

	deviceCodeTimeout = 5 * time.Minute
)

// ErrNotAuthenticated is returned by operations that need a live
// credential while the session has none.
var ErrNotAuthenticated = errors.New("not authenticated")

// State is the session's position in the authentication lifecycle.
type State string

const (
	StateUnauthenticated   State = "unauthenticated"
	StatePendingDeviceCode State = "pending_device_code"
	StateAuthenticated     State = "authenticated"
	StateFailed            State = "failed"
	StateExpired           State = "expired"
)

// Status is a point-in-time view of the session.
type Status struct {
	State     State
	TenantID  string
	Method    string
	ExpiresAt time.Time
	Err       error
}

func (s Status) Authenticated() bool {
	return s.State == StateAuthenticated
}

// DeviceCodePrompt carries what the user needs to finish a device code
// login in a browser.
type DeviceCodePrompt struct {
	UserCode        string
	VerificationURL string
	Message         string
}

// Options configure a new session.
type Options struct {
	// ClientID of the public client application; DefaultClientID if empty.
	ClientID string
	// TenantID to authenticate against; the home tenant if empty.
	TenantID string
}

// Session holds the credential and authentication state for one tenant.
// It is an explicit value threaded through calls: created once at process
// start, invalidated on logout or expiry, never ambient package state.
type Session struct {
	mu sync.Mutex

	clientID string
	tenantID string
	method   string

	state     State
	cred      azcore.TokenCredential
	expiresAt time.Time
	lastErr   error
}

func NewSession(opts Options) *Session {
	clientID := opts.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	return &Session{
		clientID: clientID,
		tenantID: opts.TenantID,
		state:    StateUnauthenticated,
	}
}

// BeginDeviceCode starts the device code flow. It returns as soon as the
// provider hands out the user code; token acquisition continues in the
// background and the session moves to StateAuthenticated or StateFailed
// once the user completes (or abandons) the browser step. Poll Status to
// observe the outcome.
func (s *Session) BeginDeviceCode(ctx context.Context) (DeviceCodePrompt, error) {
	prompts := make(chan DeviceCodePrompt, 1)

	cred, err := azidentity.NewDeviceCodeCredential(&azidentity.DeviceCodeCredentialOptions{
		ClientID: s.clientID,
		TenantID: s.tenantID,
		UserPrompt: func(ctx context.Context, dc azidentity.DeviceCodeMessage) error {
			select {
			case prompts <- DeviceCodePrompt{
				UserCode:        dc.UserCode,
				VerificationURL: dc.VerificationURL,
				Message:         dc.Message,
			}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		return DeviceCodePrompt{}, fmt.Errorf("create device code credential: %w", err)
	}

	s.mu.Lock()
	s.state = StatePendingDeviceCode
	s.method = "device_code"
	s.cred = cred
	s.lastErr = nil
	s.mu.Unlock()

	logger := zerolog.Ctx(ctx)
	go func() {
		tokenCtx, cancel := context.WithTimeout(context.Background(), deviceCodeTimeout)
		defer cancel()

		token, err := cred.GetToken(tokenCtx, policy.TokenRequestOptions{Scopes: []string{armScope}})

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.state = StateFailed
			s.lastErr = err
			logger.Error().Err(err).Msg("device code authentication failed")
			return
		}
		s.state = StateAuthenticated
		s.expiresAt = token.ExpiresOn
		logger.Info().Time("expires_at", token.ExpiresOn).Msg("device code authentication completed")
	}()

	select {
	case prompt := <-prompts:
		return prompt, nil
	case <-ctx.Done():
		return DeviceCodePrompt{}, fmt.Errorf("waiting for device code: %w", ctx.Err())
	}
}

// LoginPassword authenticates with a username and password (legacy ROPC
// flow; works only for accounts without MFA).
func (s *Session) LoginPassword(ctx context.Context, username, password, tenantID string) (Status, error) {
	cred, err := azidentity.NewUsernamePasswordCredential(tenantID, s.clientID, username, password, nil)
	if err != nil {
		return s.fail("password", err), err
	}
	return s.probe(ctx, cred, "password", tenantID)
}

// LoginServicePrincipal authenticates with an application id and secret.
func (s *Session) LoginServicePrincipal(ctx context.Context, clientID, clientSecret, tenantID string) (Status, error) {
	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return s.fail("service_principal", err), err
	}
	return s.probe(ctx, cred, "service_principal", tenantID)
}

// LoginCLI reuses an existing `az login` session.
func (s *Session) LoginCLI(ctx context.Context) (Status, error) {
	cred, err := azidentity.NewAzureCLICredential(nil)
	if err != nil {
		return s.fail("cli", err), err
	}
	return s.probe(ctx, cred, "cli", "")
}

// probe verifies the credential by acquiring an ARM token, then commits it
// to the session. Tenant id is resolved from the provider when not known.
func (s *Session) probe(ctx context.Context, cred azcore.TokenCredential, method, tenantID string) (Status, error) {
	token, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{armScope}})
	if err != nil {
		return s.fail(method, err), fmt.Errorf("%s authentication: %w", method, err)
	}

	if tenantID == "" {
		tenantID, err = resolveTenant(ctx, cred)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("could not resolve tenant id")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateAuthenticated
	s.method = method
	if tenantID != "" {
		s.tenantID = tenantID
	}
	s.cred = cred
	s.expiresAt = token.ExpiresOn
	s.lastErr = nil
	return s.statusLocked(), nil
}

func (s *Session) fail(method string, err error) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFailed
	s.method = method
	s.lastErr = err
	return s.statusLocked()
}

// Status reports the current lifecycle state, demoting an authenticated
// session whose token window has passed to StateExpired.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAuthenticated && !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) {
		s.state = StateExpired
	}
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	return Status{
		State:     s.state,
		TenantID:  s.tenantID,
		Method:    s.method,
		ExpiresAt: s.expiresAt,
		Err:       s.lastErr,
	}
}

// Credential returns the session's token credential. The scan core treats
// a valid session purely as a precondition, so this errors unless the
// session is authenticated.
func (s *Session) Credential() (azcore.TokenCredential, error) {
	if !s.Status().Authenticated() {
		return nil, ErrNotAuthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred, nil
}

// TenantID returns the resolved tenant id, possibly empty.
func (s *Session) TenantID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tenantID
}

// Logout invalidates the session.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateUnauthenticated
	s.cred = nil
	s.method = ""
	s.expiresAt = time.Time{}
	s.lastErr = nil
}

// Subscriptions lists the subscriptions visible to the session.
func (s *Session) Subscriptions(ctx context.Context) ([]domain.Subscription, error) {
	cred, err := s.Credential()
	if err != nil {
		return nil, err
	}

	client, err := armsubscriptions.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create subscriptions client: %w", err)
	}

	tenantID := s.TenantID()
	var subscriptions []domain.Subscription
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			state := "Unknown"
			if sub.State != nil {
				state = string(*sub.State)
			}
			subscriptions = append(subscriptions, domain.Subscription{
				SubscriptionID: deref(sub.SubscriptionID),
				DisplayName:    deref(sub.DisplayName),
				State:          state,
				TenantID:       tenantID,
			})
		}
	}
	return subscriptions, nil
}

func resolveTenant(ctx context.Context, cred azcore.TokenCredential) (string, error) {
	client, err := armsubscriptions.NewTenantsClient(cred, nil)
	if err != nil {
		return "", fmt.Errorf("create tenants client: %w", err)
	}

	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("list tenants: %w", err)
		}
		for _, tenant := range page.Value {
			if tenant.TenantID != nil {
				return *tenant.TenantID, nil
			}
		}
	}
	return "", fmt.Errorf("no tenant visible to credential")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
