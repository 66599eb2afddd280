package graph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCred struct{}

func (staticCred) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "test-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestClient_DirectoryObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/directoryObjects/sp-1":
			_, _ = w.Write([]byte(`{
				"@odata.type": "#microsoft.graph.servicePrincipal",
				"id": "sp-1",
				"displayName": "build-agent",
				"servicePrincipalType": "ManagedIdentity"
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(staticCred{}, srv.URL)

	obj, err := client.DirectoryObject(context.Background(), "sp-1")
	require.NoError(t, err)
	assert.Equal(t, "#microsoft.graph.servicePrincipal", obj.ODataType)
	assert.Equal(t, "ManagedIdentity", obj.ServicePrincipalType)
	assert.Equal(t, "build-agent", obj.DisplayName)

	_, err = client.DirectoryObject(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ListUsers_Paged(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(`{"value": [{"id": "u3", "displayName": "Carol", "userType": "Guest"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"value": [
				{"id": "u1", "displayName": "Alice", "userType": "Member"},
				{"id": "u2", "displayName": "Bob", "userType": "Member"}
			],
			"@odata.nextLink": "` + srv.URL + `/users?page=2"
		}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(staticCred{}, srv.URL)

	users, err := client.ListUsers(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Carol", users[2].DisplayName)
	assert.Equal(t, "Guest", users[2].UserType)
}

func TestClient_ListUsers_Limit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"value": [{"id": "u1"}, {"id": "u2"}, {"id": "u3"}]}`))
	}))
	defer srv.Close()

	client := NewClientWithBaseURL(staticCred{}, srv.URL)

	users, err := client.ListUsers(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
