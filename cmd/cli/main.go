package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/sectools/azrecon/pkg/services/auth"
	"github.com/sectools/azrecon/pkg/services/config"
	"github.com/sectools/azrecon/pkg/services/report"
	"github.com/sectools/azrecon/pkg/services/scan"
	"github.com/sectools/azrecon/pkg/store/sqlite"
	"github.com/sectools/azrecon/pkg/store/sqlite/snapshot"
)

var (
	cfgPath      string
	reportFormat string
	verbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "azrecon",
		Short: "Read-only security posture scanning for Azure tenants",
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to the service config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a full scan and persist the snapshot",
		RunE:  runScan,
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Render a report from the latest snapshot",
		RunE:  runReport,
	}
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "markdown", "Report format: markdown or pdf")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored snapshot for the configured tenant",
		RunE:  runStatus,
	}

	rootCmd.AddCommand(scanCmd, reportCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type env struct {
	cfg     *config.Config
	logger  zerolog.Logger
	session *auth.Session
	store   snapshot.Store
	close   func()
}

// setup wires the shared pieces: config, logging, snapshot store, and an
// unauthenticated session.
func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(level)
	cmd.SetContext(logger.WithContext(cmd.Context()))

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

	db, err := sqlite.NewDB(sqlite.Settings{DbPath: cfg.DBPath})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	store, err := snapshot.NewStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	return &env{
		cfg:    cfg,
		logger: logger,
		session: auth.NewSession(auth.Options{
			ClientID: cfg.ClientID,
			TenantID: cfg.TenantID,
		}),
		store: store,
		close: func() { _ = db.Close() },
	}, nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if _, err := e.session.LoginCLI(cmd.Context()); err != nil {
		return fmt.Errorf("login via Azure CLI failed (run `az login` first): %w", err)
	}
	fmt.Printf("Authenticated against tenant %s\n", e.session.TenantID())

	snap, err := scan.NewService(e.session, e.store).Run(cmd.Context())
	var partial *scan.PartialScanError
	if errors.As(err, &partial) {
		return fmt.Errorf("scan incomplete, nothing persisted: %s", partial.Error())
	}
	if err != nil {
		return err
	}

	printSummary(snap)
	return nil
}

func runReport(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	format, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	manager := report.NewManager(e.store, e.cfg.ReportsDir)
	generated, err := manager.Generate(cmd.Context(), e.cfg.TenantID, format)
	if errors.Is(err, snapshot.ErrNotFound) {
		return fmt.Errorf("no snapshot stored yet, run `azrecon scan` first")
	}
	if err != nil {
		return err
	}

	fmt.Printf("Report written to %s\n", generated.Path)
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	snap, err := e.store.Latest(cmd.Context(), e.cfg.TenantID)
	if errors.Is(err, snapshot.ErrNotFound) {
		fmt.Println("No snapshot stored yet. Run `azrecon scan` first.")
		return nil
	}
	if err != nil {
		return err
	}

	printSummary(snap)
	return nil
}

func printSummary(snap *domain.ScanSnapshot) {
	summary := report.Summarize(snap)

	fmt.Printf("\nTenant %s, scanned %s\n", snap.TenantID, snap.ScanTimestamp.UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Printf("  Secure score:              %.1f%%\n", summary.SecureScorePercent)
	fmt.Printf("  Open recommendations:      %d (%d high severity)\n", summary.Recommendations, summary.HighSeverityFindings)
	fmt.Printf("  Internet-facing resources: %d\n", summary.PublicResources)
	fmt.Printf("  High-risk NSGs:            %d\n", summary.HighRiskNetworkGroups)
	fmt.Printf("  Role assignments:          %d (%d privileged)\n", len(snap.RoleAssignments), summary.PrivilegedAssignments)
	fmt.Printf("  Users:                     %d (%d guests, %d without MFA)\n", len(snap.Users), summary.GuestUsers, summary.UsersWithoutMFA)
	fmt.Printf("  Non-compliant resources:   %d\n", summary.NonCompliantResources)

	for _, category := range domain.Categories() {
		breakdown, ok := snap.IdentityBreakdown[category]
		if !ok {
			continue
		}
		fmt.Printf("  %-20s %d\n", string(category)+":", breakdown.Count)
	}
}
