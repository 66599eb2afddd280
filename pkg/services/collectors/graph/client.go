package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

const (
	defaultBaseURL = "https://graph.microsoft.com/v1.0"
	graphScope     = "https://graph.microsoft.com/.default"
)

// ErrNotFound marks a directory object the tenant no longer knows about
// (deleted principal, or an id from another tenant).
var ErrNotFound = errors.New("directory object not found")

// DirectoryObject is the subset of Graph's directoryObject envelope the
// collectors care about.
type DirectoryObject struct {
	ODataType            string `json:"@odata.type"`
	ID                   string `json:"id"`
	DisplayName          string `json:"displayName"`
	UserPrincipalName    string `json:"userPrincipalName"`
	ServicePrincipalType string `json:"servicePrincipalType"`
}

// User is a directory user as returned by /users.
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	Mail              string `json:"mail"`
	UserType          string `json:"userType"`
}

type listResponse[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// Client is a minimal Microsoft Graph REST client. Only the read-only
// calls the scan needs are implemented; no SDK surface beyond azcore for
// token acquisition.
type Client struct {
	cred       azcore.TokenCredential
	httpClient *http.Client
	baseURL    string
}

func NewClient(cred azcore.TokenCredential) *Client {
	return &Client{
		cred:       cred,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a fake.
func NewClientWithBaseURL(cred azcore.TokenCredential, baseURL string) *Client {
	c := NewClient(cred)
	c.baseURL = baseURL
	return c
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	token, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{graphScope}})
	if err != nil {
		return fmt.Errorf("acquire graph token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph request %s: status %d: %s", req.URL.Path, resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// DirectoryObject fetches a principal by object id. The @odata.type
// discriminator tells callers whether it is a user, group or service
// principal.
func (c *Client) DirectoryObject(ctx context.Context, id string) (DirectoryObject, error) {
	var obj DirectoryObject
	err := c.get(ctx, fmt.Sprintf("%s/directoryObjects/%s", c.baseURL, url.PathEscape(id)), &obj)
	return obj, err
}

// ListUsers pages through the tenant's users, up to limit (0 = no limit).
func (c *Client) ListUsers(ctx context.Context, limit int) ([]User, error) {
	next := c.baseURL + "/users?" + url.Values{
		"$select": []string{"id,displayName,userPrincipalName,mail,userType"},
		"$top":    []string{"100"},
	}.Encode()

	var users []User
	for next != "" {
		var page listResponse[User]
		if err := c.get(ctx, next, &page); err != nil {
			return nil, err
		}
		users = append(users, page.Value...)
		if limit > 0 && len(users) >= limit {
			return users[:limit], nil
		}
		next = page.NextLink
	}
	return users, nil
}

// AuthenticationMethodCount returns how many authentication methods are
// registered for a user. More than one usually means MFA is set up.
// Needs UserAuthenticationMethod.Read.All; callers should treat an error
// as "unknown", not as a scan failure.
func (c *Client) AuthenticationMethodCount(ctx context.Context, userID string) (int, error) {
	var page listResponse[json.RawMessage]
	err := c.get(ctx, fmt.Sprintf("%s/users/%s/authentication/methods", c.baseURL, url.PathEscape(userID)), &page)
	if err != nil {
		return 0, err
	}
	return len(page.Value), nil
}
