package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sectools/azrecon/pkg/server"
	"github.com/sectools/azrecon/pkg/services/auth"
	"github.com/sectools/azrecon/pkg/services/config"
	"github.com/sectools/azrecon/pkg/services/report"
	"github.com/sectools/azrecon/pkg/services/scan"
	"github.com/sectools/azrecon/pkg/store/sqlite"
	"github.com/sectools/azrecon/pkg/store/sqlite/snapshot"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the azrecon API server",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the service config file (defaults and AZRECON_* env vars apply without one)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	// .env is a local development convenience, absence is fine
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sqlite.NewDB(sqlite.Settings{DbPath: cfg.DBPath})
	if err != nil {
		return fmt.Errorf("failed to open snapshot database: %w", err)
	}
	defer db.Close()

	snapshotStore, err := snapshot.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create snapshot store: %w", err)
	}

	// The local Azure CLI profile fills in whatever the service config
	// leaves unset.
	if cfg.TenantID == "" || cfg.ClientID == "" {
		if profile, err := auth.LoadProfile(auth.DefaultProfile); err == nil {
			if cfg.TenantID == "" {
				cfg.TenantID = profile.TenantID
			}
			if cfg.ClientID == "" {
				cfg.ClientID = profile.ClientID
			}
		}
	}

	session := auth.NewSession(auth.Options{
		ClientID: cfg.ClientID,
		TenantID: cfg.TenantID,
	})

	api := server.NewWebAPI(logger, server.Config{
		Addr:           cfg.Addr(),
		AllowedOrigins: cfg.AllowedOrigins,
		Dependencies: server.Dependencies{
			Session: session,
			Scanner: scan.NewService(session, snapshotStore),
			Reports: report.NewManager(snapshotStore, cfg.ReportsDir),
		},
	})

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("reports_dir", cfg.ReportsDir).
		Msg("azrecon configured")

	return api.Start()
}
