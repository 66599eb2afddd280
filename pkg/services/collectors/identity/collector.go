package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/rs/zerolog"
	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/sectools/azrecon/pkg/services/collectors/graph"
)

// defaultUserLimit caps the directory user listing so large tenants do
// not dominate scan time.
const defaultUserLimit = 100

// unknownRoleName labels assignments whose role definition is not
// visible in the subscription's definition listing.
const unknownRoleName = "Unknown Role"

// Collector reads role assignments from ARM and resolves principals and
// users through the directory.
type Collector struct {
	graph      *graph.Client
	newFactory func(subscriptionID string) (*armauthorization.ClientFactory, error)
	userLimit  int
}

func NewCollector(cred azcore.TokenCredential) *Collector {
	return &Collector{
		graph: graph.NewClient(cred),
		newFactory: func(subscriptionID string) (*armauthorization.ClientFactory, error) {
			return armauthorization.NewClientFactory(subscriptionID, cred, nil)
		},
		userLimit: defaultUserLimit,
	}
}

// resolved is what the directory knows about a principal.
type resolved struct {
	name string
	kind string
}

// RoleAssignments lists every role assignment in the given
// subscriptions. Role definition ids are translated to role names, and
// each principal is resolved against the directory once, so the
// assignment carries a display name and an authoritative type even when
// ARM omits them.
func (c *Collector) RoleAssignments(ctx context.Context, subscriptionIDs []string) ([]domain.RoleAssignment, error) {
	logger := zerolog.Ctx(ctx)
	principals := make(map[string]resolved)

	var assignments []domain.RoleAssignment
	for _, subID := range subscriptionIDs {
		factory, err := c.newFactory(subID)
		if err != nil {
			return nil, fmt.Errorf("failed to create authorization client for %s: %w", subID, err)
		}

		roleNames, err := c.roleNames(ctx, factory, subID)
		if err != nil {
			return nil, err
		}

		pager := factory.NewRoleAssignmentsClient().NewListForSubscriptionPager(nil)
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list role assignments in %s: %w", subID, err)
			}
			for _, ra := range page.Value {
				if ra == nil || ra.Properties == nil || ra.Properties.PrincipalID == nil {
					continue
				}
				props := ra.Properties

				armType := ""
				if props.PrincipalType != nil {
					armType = string(*props.PrincipalType)
				}
				principal := c.resolvePrincipal(ctx, logger, principals, *props.PrincipalID, armType)

				assignments = append(assignments, domain.RoleAssignment{
					PrincipalID:        *props.PrincipalID,
					PrincipalName:      principal.name,
					PrincipalType:      principal.kind,
					RoleDefinitionName: lookupRoleName(roleNames, deref(props.RoleDefinitionID)),
					Scope:              deref(props.Scope),
					SubscriptionID:     subID,
				})
			}
		}
	}
	return assignments, nil
}

// lookupRoleName translates a role definition id; assignments pointing
// at definitions the caller cannot read keep a stable placeholder.
func lookupRoleName(roleNames map[string]string, definitionID string) string {
	if name := roleNames[strings.ToLower(definitionID)]; name != "" {
		return name
	}
	return unknownRoleName
}

func (c *Collector) roleNames(ctx context.Context, factory *armauthorization.ClientFactory, subID string) (map[string]string, error) {
	names := make(map[string]string)
	pager := factory.NewRoleDefinitionsClient().NewListPager(fmt.Sprintf("/subscriptions/%s", subID), nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list role definitions in %s: %w", subID, err)
		}
		for _, def := range page.Value {
			if def == nil || def.ID == nil || def.Properties == nil || def.Properties.RoleName == nil {
				continue
			}
			names[strings.ToLower(*def.ID)] = *def.Properties.RoleName
		}
	}
	return names, nil
}

// resolvePrincipal asks the directory who a principal is. A missing
// object means it was deleted after the assignment was made; a directory
// error (usually missing Graph permissions) falls back to what ARM said.
func (c *Collector) resolvePrincipal(ctx context.Context, logger *zerolog.Logger, cache map[string]resolved, principalID, armType string) resolved {
	if hit, ok := cache[principalID]; ok {
		return hit
	}

	var out resolved
	obj, err := c.graph.DirectoryObject(ctx, principalID)
	switch {
	case errors.Is(err, graph.ErrNotFound):
		out = resolved{kind: "Unknown"}
	case err != nil:
		logger.Warn().Err(err).Str("principal_id", principalID).Msg("directory lookup failed, using ARM principal type")
		out = resolved{kind: armType}
	default:
		out = resolved{name: obj.DisplayName, kind: principalKind(obj)}
	}

	cache[principalID] = out
	return out
}

func principalKind(obj graph.DirectoryObject) string {
	switch obj.ODataType {
	case "#microsoft.graph.user":
		return "User"
	case "#microsoft.graph.group":
		return "Group"
	case "#microsoft.graph.servicePrincipal":
		if obj.ServicePrincipalType == "ManagedIdentity" {
			return "ManagedIdentity"
		}
		return "ServicePrincipal"
	default:
		return "Unknown"
	}
}

// Users lists directory users with guest status and an MFA check. The
// MFA lookup needs UserAuthenticationMethod.Read.All; when the session
// lacks it, users are reported with MFA unknown rather than failing the
// feed.
func (c *Collector) Users(ctx context.Context) ([]domain.UserInfo, error) {
	logger := zerolog.Ctx(ctx)

	directoryUsers, err := c.graph.ListUsers(ctx, c.userLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory users: %w", err)
	}

	mfaUnavailable := false
	users := make([]domain.UserInfo, 0, len(directoryUsers))
	for _, u := range directoryUsers {
		info := domain.UserInfo{
			ID:                u.ID,
			DisplayName:       u.DisplayName,
			UserPrincipalName: u.UserPrincipalName,
			Mail:              u.Mail,
			IsGuest:           u.UserType == "Guest",
		}
		if !mfaUnavailable {
			count, err := c.graph.AuthenticationMethodCount(ctx, u.ID)
			if err != nil {
				mfaUnavailable = true
				logger.Warn().Err(err).Msg("authentication method lookup failed, reporting MFA as unknown")
			} else {
				// password counts as one method, anything beyond it
				// means a second factor is registered
				info.MFAEnabled = count > 1
			}
		}
		users = append(users, info)
	}
	return users, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
