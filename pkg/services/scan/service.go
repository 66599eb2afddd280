package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/sectools/azrecon/pkg/services/auth"
	"github.com/sectools/azrecon/pkg/services/collectors/exposure"
	identitycollector "github.com/sectools/azrecon/pkg/services/collectors/identity"
	"github.com/sectools/azrecon/pkg/services/collectors/policy"
	"github.com/sectools/azrecon/pkg/services/collectors/securescore"
)

// Service runs scans for the authenticated session. Collectors are built
// per run because the credential can change across logins.
type Service struct {
	session *auth.Session
	store   SnapshotStore
}

func NewService(session *auth.Session, store SnapshotStore) *Service {
	return &Service{
		session: session,
		store:   store,
	}
}

// Run executes a full scan over every enabled subscription the session
// can see and persists the snapshot.
func (s *Service) Run(ctx context.Context) (*domain.ScanSnapshot, error) {
	cred, err := s.session.Credential()
	if err != nil {
		return nil, err
	}

	subscriptions, err := s.session.Subscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	var ids []string
	for _, sub := range subscriptions {
		if sub.State == "" || strings.EqualFold(sub.State, "Enabled") {
			ids = append(ids, sub.SubscriptionID)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no enabled subscriptions visible to the session")
	}

	sources := Sources{
		SecureScore: securescore.NewCollector(cred),
		Exposure:    exposure.NewCollector(cred),
		Identity:    identitycollector.NewCollector(cred),
		Policy:      policy.NewCollector(cred),
	}

	return NewOrchestrator(sources, NewBuilder(), s.store).Run(ctx, s.session.TenantID(), ids)
}

// Latest returns the stored snapshot for the session's tenant.
func (s *Service) Latest(ctx context.Context) (*domain.ScanSnapshot, error) {
	return s.store.Latest(ctx, s.session.TenantID())
}
