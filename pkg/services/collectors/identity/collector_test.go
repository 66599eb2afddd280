package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/rs/zerolog"
	"github.com/sectools/azrecon/pkg/services/collectors/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCred struct{}

func (staticCred) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "test-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestPrincipalKind(t *testing.T) {
	tests := []struct {
		name string
		obj  graph.DirectoryObject
		want string
	}{
		{"user", graph.DirectoryObject{ODataType: "#microsoft.graph.user"}, "User"},
		{"group", graph.DirectoryObject{ODataType: "#microsoft.graph.group"}, "Group"},
		{"service principal", graph.DirectoryObject{ODataType: "#microsoft.graph.servicePrincipal"}, "ServicePrincipal"},
		{
			"managed identity",
			graph.DirectoryObject{ODataType: "#microsoft.graph.servicePrincipal", ServicePrincipalType: "ManagedIdentity"},
			"ManagedIdentity",
		},
		{"unexpected type", graph.DirectoryObject{ODataType: "#microsoft.graph.device"}, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, principalKind(tt.obj))
		})
	}
}

func TestLookupRoleName(t *testing.T) {
	roleNames := map[string]string{
		"/subscriptions/sub-1/providers/microsoft.authorization/roledefinitions/def-1": "Reader",
	}

	assert.Equal(t, "Reader", lookupRoleName(roleNames, "/subscriptions/sub-1/providers/Microsoft.Authorization/roleDefinitions/def-1"))
	assert.Equal(t, "Unknown Role", lookupRoleName(roleNames, "/subscriptions/sub-1/providers/Microsoft.Authorization/roleDefinitions/def-2"))
	assert.Equal(t, "Unknown Role", lookupRoleName(nil, ""))
}

func TestResolvePrincipal(t *testing.T) {
	var lookups int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lookups++
		switch r.URL.Path {
		case "/directoryObjects/user-1":
			_, _ = w.Write([]byte(`{"@odata.type": "#microsoft.graph.user", "id": "user-1", "displayName": "Alice"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := &Collector{graph: graph.NewClientWithBaseURL(staticCred{}, srv.URL)}
	logger := zerolog.Nop()
	cache := make(map[string]resolved)

	got := c.resolvePrincipal(context.Background(), &logger, cache, "user-1", "")
	assert.Equal(t, resolved{name: "Alice", kind: "User"}, got)

	// second lookup of the same principal hits the cache
	_ = c.resolvePrincipal(context.Background(), &logger, cache, "user-1", "")
	assert.Equal(t, 1, lookups)

	// deleted principals are reported as Unknown, not as the stale ARM type
	got = c.resolvePrincipal(context.Background(), &logger, cache, "gone", "User")
	assert.Equal(t, resolved{kind: "Unknown"}, got)
}

func TestUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users":
			_, _ = w.Write([]byte(`{"value": [
				{"id": "u1", "displayName": "Alice", "userPrincipalName": "alice@contoso.com", "userType": "Member"},
				{"id": "u2", "displayName": "Mallory", "userPrincipalName": "mallory_gmail.com#EXT#@contoso.com", "userType": "Guest"}
			]}`))
		case r.URL.Path == "/users/u1/authentication/methods":
			_, _ = w.Write([]byte(`{"value": [{}, {}]}`))
		case r.URL.Path == "/users/u2/authentication/methods":
			_, _ = w.Write([]byte(`{"value": [{}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := &Collector{graph: graph.NewClientWithBaseURL(staticCred{}, srv.URL), userLimit: defaultUserLimit}

	users, err := c.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.False(t, users[0].IsGuest)
	assert.True(t, users[0].MFAEnabled)
	assert.True(t, users[1].IsGuest)
	assert.False(t, users[1].MFAEnabled)
}

func TestUsers_MFAUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users" {
			_, _ = w.Write([]byte(`{"value": [{"id": "u1", "userType": "Member"}]}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": "Authorization_RequestDenied"}}`))
	}))
	defer srv.Close()

	c := &Collector{graph: graph.NewClientWithBaseURL(staticCred{}, srv.URL), userLimit: defaultUserLimit}

	users, err := c.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.False(t, users[0].MFAEnabled)
}
