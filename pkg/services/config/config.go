package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the service configuration. Values come from an optional YAML
// file, overridden by AZRECON_* environment variables.
type Config struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	DBPath         string   `mapstructure:"db_path"`
	ReportsDir     string   `mapstructure:"reports_dir"`
	TenantID       string   `mapstructure:"tenant_id"`
	ClientID       string   `mapstructure:"client_id"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads configuration from path. An empty path loads defaults and
// environment only; a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "azrecon.db")
	v.SetDefault("reports_dir", "reports")

	v.SetEnvPrefix("AZRECON")
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so keys
	// without defaults need an explicit binding.
	for _, key := range []string{"tenant_id", "client_id", "allowed_origins"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
