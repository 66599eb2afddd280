package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

const DefaultProfile = "default"

// Profile holds per-profile defaults read from the local Azure CLI config.
type Profile struct {
	SubscriptionID string
	TenantID       string
	ClientID       string
}

// LoadProfile reads ~/.azure/config and returns the named profile's
// defaults. Missing keys stay empty; the session falls back to its own
// defaults for anything the profile does not pin.
func LoadProfile(profile string) (*Profile, error) {
	if profile == "" {
		profile = DefaultProfile
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("unable to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".azure", "config")
	cfg, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load Azure config file: %w", err)
	}

	section, err := cfg.GetSection(profile)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found in Azure config: %w", profile, err)
	}

	return &Profile{
		SubscriptionID: section.Key("subscription").String(),
		TenantID:       section.Key("tenant").String(),
		ClientID:       section.Key("client_id").String(),
	}, nil
}
