package exposure

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v6"
	"github.com/sectools/azrecon/pkg/models/domain"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentSubscriptions = 4

// Collector reads internet-facing resources and network security groups.
type Collector struct {
	newFactory func(subscriptionID string) (*armnetwork.ClientFactory, error)
}

func NewCollector(cred azcore.TokenCredential) *Collector {
	return &Collector{
		newFactory: func(subscriptionID string) (*armnetwork.ClientFactory, error) {
			return armnetwork.NewClientFactory(subscriptionID, cred, nil)
		},
	}
}

// PublicResources lists every resource with a public IP attached, plus
// internet-facing load balancers and application gateways.
func (c *Collector) PublicResources(ctx context.Context, subscriptionIDs []string) ([]domain.PublicResource, error) {
	return collectAll(ctx, subscriptionIDs, c.publicResourcesForSubscription)
}

// NetworkSecurityGroups lists all groups with their rules graded for
// internet exposure.
func (c *Collector) NetworkSecurityGroups(ctx context.Context, subscriptionIDs []string) ([]domain.NetworkSecurityGroup, error) {
	return collectAll(ctx, subscriptionIDs, c.groupsForSubscription)
}

// collectAll fans out one fetch per subscription, bounded by
// maxConcurrentSubscriptions. The first error cancels the rest.
func collectAll[T any](ctx context.Context, subscriptionIDs []string, fetch func(context.Context, string) ([]T, error)) ([]T, error) {
	var mu sync.Mutex
	var out []T

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentSubscriptions)
	for _, subID := range subscriptionIDs {
		subID := subID
		group.Go(func() error {
			items, err := fetch(groupCtx, subID)
			if err != nil {
				return fmt.Errorf("subscription %s: %w", subID, err)
			}
			mu.Lock()
			out = append(out, items...)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Collector) publicResourcesForSubscription(ctx context.Context, subID string) ([]domain.PublicResource, error) {
	factory, err := c.newFactory(subID)
	if err != nil {
		return nil, fmt.Errorf("failed to create network client: %w", err)
	}

	var resources []domain.PublicResource

	ipPager := factory.NewPublicIPAddressesClient().NewListAllPager(nil)
	for ipPager.More() {
		page, err := ipPager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list public IPs: %w", err)
		}
		for _, ip := range page.Value {
			if ip == nil || ip.Properties == nil || ip.Properties.IPAddress == nil {
				continue
			}
			ownerID := ""
			if cfg := ip.Properties.IPConfiguration; cfg != nil && cfg.ID != nil {
				ownerID = ownerResourceID(*cfg.ID)
			}
			if ownerID == "" {
				// unattached address, still worth reporting
				ownerID = deref(ip.ID)
			}
			resources = append(resources, domain.PublicResource{
				ResourceID:     ownerID,
				ResourceName:   resourceNameFromID(ownerID),
				ResourceType:   resourceTypeFromID(ownerID),
				PublicIP:       *ip.Properties.IPAddress,
				SubscriptionID: subID,
				ResourceGroup:  resourceGroupFromID(ownerID),
			})
		}
	}

	lbs, err := c.loadBalancers(ctx, factory, subID)
	if err != nil {
		return nil, err
	}
	resources = append(resources, lbs...)

	gws, err := c.applicationGateways(ctx, factory, subID)
	if err != nil {
		return nil, err
	}
	return append(resources, gws...), nil
}

func (c *Collector) loadBalancers(ctx context.Context, factory *armnetwork.ClientFactory, subID string) ([]domain.PublicResource, error) {
	var resources []domain.PublicResource
	pager := factory.NewLoadBalancersClient().NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list load balancers: %w", err)
		}
		for _, lb := range page.Value {
			if lb == nil || lb.Properties == nil || !hasPublicFrontend(lb.Properties.FrontendIPConfigurations) {
				continue
			}
			res := domain.PublicResource{
				ResourceID:     deref(lb.ID),
				ResourceName:   deref(lb.Name),
				ResourceType:   "Microsoft.Network/loadBalancers",
				SubscriptionID: subID,
				ResourceGroup:  resourceGroupFromID(deref(lb.ID)),
			}
			for _, rule := range lb.Properties.LoadBalancingRules {
				if rule == nil || rule.Properties == nil {
					continue
				}
				if rule.Properties.FrontendPort != nil {
					res.Ports = append(res.Ports, int(*rule.Properties.FrontendPort))
				}
				if rule.Properties.Protocol != nil {
					res.Protocols = appendUnique(res.Protocols, string(*rule.Properties.Protocol))
				}
			}
			resources = append(resources, res)
		}
	}
	return resources, nil
}

func (c *Collector) applicationGateways(ctx context.Context, factory *armnetwork.ClientFactory, subID string) ([]domain.PublicResource, error) {
	var resources []domain.PublicResource
	pager := factory.NewApplicationGatewaysClient().NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list application gateways: %w", err)
		}
		for _, gw := range page.Value {
			if gw == nil || gw.Properties == nil || !hasPublicGatewayFrontend(gw.Properties.FrontendIPConfigurations) {
				continue
			}
			res := domain.PublicResource{
				ResourceID:     deref(gw.ID),
				ResourceName:   deref(gw.Name),
				ResourceType:   "Microsoft.Network/applicationGateways",
				SubscriptionID: subID,
				ResourceGroup:  resourceGroupFromID(deref(gw.ID)),
				Protocols:      []string{"Http", "Https"},
			}
			for _, port := range gw.Properties.FrontendPorts {
				if port != nil && port.Properties != nil && port.Properties.Port != nil {
					res.Ports = append(res.Ports, int(*port.Properties.Port))
				}
			}
			resources = append(resources, res)
		}
	}
	return resources, nil
}

func (c *Collector) groupsForSubscription(ctx context.Context, subID string) ([]domain.NetworkSecurityGroup, error) {
	factory, err := c.newFactory(subID)
	if err != nil {
		return nil, fmt.Errorf("failed to create network client: %w", err)
	}

	var groups []domain.NetworkSecurityGroup
	pager := factory.NewSecurityGroupsClient().NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list network security groups: %w", err)
		}
		for _, nsg := range page.Value {
			if nsg == nil {
				continue
			}
			group := domain.NetworkSecurityGroup{
				ID:             deref(nsg.ID),
				Name:           deref(nsg.Name),
				Location:       deref(nsg.Location),
				ResourceGroup:  resourceGroupFromID(deref(nsg.ID)),
				SubscriptionID: subID,
			}
			if nsg.Properties != nil {
				for _, rule := range nsg.Properties.SecurityRules {
					group.Rules = append(group.Rules, toSecurityRule(rule))
				}
			}
			group.RiskLevel, group.RiskyRules, group.RiskReasons = AnalyzeRules(group.Rules)
			groups = append(groups, group)
		}
	}
	return groups, nil
}

func toSecurityRule(rule *armnetwork.SecurityRule) domain.SecurityRule {
	out := domain.SecurityRule{Name: deref(rule.Name)}
	props := rule.Properties
	if props == nil {
		return out
	}
	if props.Priority != nil {
		out.Priority = *props.Priority
	}
	if props.Direction != nil {
		out.Direction = string(*props.Direction)
	}
	if props.Access != nil {
		out.Access = string(*props.Access)
	}
	if props.Protocol != nil {
		out.Protocol = string(*props.Protocol)
	}
	out.SourcePortRange = deref(props.SourcePortRange)
	out.DestinationPortRange = joinRanges(props.DestinationPortRange, props.DestinationPortRanges)
	out.SourceAddressPrefix = joinRanges(props.SourceAddressPrefix, props.SourceAddressPrefixes)
	out.DestinationAddressPrefix = deref(props.DestinationAddressPrefix)
	return out
}

// joinRanges flattens Azure's single-or-plural fields into one string.
func joinRanges(single *string, plural []*string) string {
	if single != nil && *single != "" {
		return *single
	}
	parts := make([]string, 0, len(plural))
	for _, p := range plural {
		if p != nil {
			parts = append(parts, *p)
		}
	}
	return strings.Join(parts, ",")
}

func hasPublicFrontend(configs []*armnetwork.FrontendIPConfiguration) bool {
	for _, cfg := range configs {
		if cfg != nil && cfg.Properties != nil && cfg.Properties.PublicIPAddress != nil {
			return true
		}
	}
	return false
}

func hasPublicGatewayFrontend(configs []*armnetwork.ApplicationGatewayFrontendIPConfiguration) bool {
	for _, cfg := range configs {
		if cfg != nil && cfg.Properties != nil && cfg.Properties.PublicIPAddress != nil {
			return true
		}
	}
	return false
}

// ownerResourceID strips the child path from an ipConfiguration id,
// leaving the owning NIC, bastion or gateway resource id.
func ownerResourceID(ipConfigID string) string {
	for _, marker := range []string{"/ipConfigurations/", "/frontendIPConfigurations/"} {
		if idx := strings.Index(ipConfigID, marker); idx > 0 {
			return ipConfigID[:idx]
		}
	}
	return ipConfigID
}

func resourceGroupFromID(id string) string {
	return idSegment(id, "resourceGroups")
}

func resourceNameFromID(id string) string {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// resourceTypeFromID returns "provider/type", e.g.
// "Microsoft.Network/networkInterfaces".
func resourceTypeFromID(id string) string {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	for i, part := range parts {
		if strings.EqualFold(part, "providers") && i+2 < len(parts) {
			return parts[i+1] + "/" + parts[i+2]
		}
	}
	return ""
}

func idSegment(id, key string) string {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	for i, part := range parts {
		if strings.EqualFold(part, key) && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
