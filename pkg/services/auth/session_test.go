package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_Defaults(t *testing.T) {
	s := NewSession(Options{})

	status := s.Status()
	assert.Equal(t, StateUnauthenticated, status.State)
	assert.False(t, status.Authenticated())

	_, err := s.Credential()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSession_Logout(t *testing.T) {
	s := NewSession(Options{TenantID: "tenant-1"})
	s.Logout()

	status := s.Status()
	assert.Equal(t, StateUnauthenticated, status.State)
	assert.Empty(t, status.Method)
	// tenant id is configuration, not credential state
	assert.Equal(t, "tenant-1", s.TenantID())
}

func TestLoadProfile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".azure"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".azure", "config"), []byte(`
[default]
subscription = sub-1
tenant = tenant-1

[work]
tenant = tenant-2
client_id = app-1
`), 0o644))

	profile, err := LoadProfile("")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", profile.SubscriptionID)
	assert.Equal(t, "tenant-1", profile.TenantID)
	assert.Empty(t, profile.ClientID)

	profile, err = LoadProfile("work")
	require.NoError(t, err)
	assert.Equal(t, "tenant-2", profile.TenantID)
	assert.Equal(t, "app-1", profile.ClientID)

	_, err = LoadProfile("missing")
	assert.Error(t, err)
}
