package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	authhandler "github.com/sectools/azrecon/pkg/handlers/auth"
	reporthandler "github.com/sectools/azrecon/pkg/handlers/report"
	scanhandler "github.com/sectools/azrecon/pkg/handlers/scan"
	azreconmiddleware "github.com/sectools/azrecon/pkg/server/middleware"
	"github.com/sectools/azrecon/pkg/services/auth"
	"github.com/sectools/azrecon/pkg/services/report"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
}

type Dependencies struct {
	Session *auth.Session
	Scanner scanhandler.Scanner
	Reports *report.Manager
}

type Config struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	deps := config.Dependencies
	authHandler := authhandler.NewHandler(deps.Session)
	scanHandler := scanhandler.NewHandler(deps.Scanner)
	reportHandler := reporthandler.NewHandler(deps.Reports, deps.Session)

	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	router := chi.NewRouter()
	router.Use(azreconmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/login/device-code", authHandler.BeginDeviceCode)
		r.Post("/login/password", authHandler.LoginPassword)
		r.Post("/login/service-principal", authHandler.LoginServicePrincipal)
		r.Post("/login/cli", authHandler.LoginCLI)
		r.Post("/auth/complete", authHandler.Complete)
		r.Get("/auth/status", authHandler.Status)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/subscriptions", authHandler.ListSubscriptions)
		r.Get("/diagnostics", authHandler.Diagnostics)

		r.Post("/scan", scanHandler.RunScan)
		r.Get("/scan/latest", scanHandler.Latest)
		r.Get("/securescore", scanHandler.SecureScore)
		r.Get("/recommendations", scanHandler.Recommendations)
		r.Get("/exposure", scanHandler.PublicResources)
		r.Get("/nsgs", scanHandler.NetworkSecurityGroups)
		r.Get("/roles", scanHandler.RoleAssignments)
		r.Get("/users", scanHandler.Users)
		r.Get("/identity", scanHandler.IdentityBreakdown)
		r.Get("/identity/summary", scanHandler.IdentitySummary)
		r.Get("/policy", scanHandler.PolicyAssignments)
		r.Get("/compliance", scanHandler.ComplianceResults)

		r.Post("/reports", reportHandler.Generate)
		r.Get("/reports", reportHandler.List)
		r.Get("/reports/{id}", reportHandler.Download)
	})

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
	}
}

// Router exposes the configured mux, mostly for tests.
func (w *WebAPI) Router() http.Handler {
	return w.router
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
