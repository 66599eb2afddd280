package scan

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sectools/azrecon/pkg/handlers/respond"
	"github.com/sectools/azrecon/pkg/models/api"
	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/sectools/azrecon/pkg/services/auth"
	"github.com/sectools/azrecon/pkg/services/identity"
	scansvc "github.com/sectools/azrecon/pkg/services/scan"
	"github.com/sectools/azrecon/pkg/store/sqlite/snapshot"
)

const topRolesPerCategory = 5

// Scanner runs scans and serves the latest snapshot.
type Scanner interface {
	Run(ctx context.Context) (*domain.ScanSnapshot, error)
	Latest(ctx context.Context) (*domain.ScanSnapshot, error)
}

type Handler struct {
	scanner Scanner
}

func NewHandler(scanner Scanner) *Handler {
	return &Handler{scanner: scanner}
}

// RunScan executes a full scan and returns the headline counts.
func (h *Handler) RunScan(w http.ResponseWriter, r *http.Request) {
	snap, err := h.scanner.Run(r.Context())
	if err != nil {
		h.writeScanError(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, api.ScanResult{
		TenantID:        snap.TenantID,
		ScanTimestamp:   snap.ScanTimestamp,
		RoleAssignments: len(snap.RoleAssignments),
		Recommendations: len(snap.Recommendations),
		PublicResources: len(snap.PublicResources),
		Users:           len(snap.Users),
	})
}

func (h *Handler) writeScanError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())
	var partial *scansvc.PartialScanError
	switch {
	case errors.Is(err, auth.ErrNotAuthenticated):
		respond.Error(w, r, http.StatusUnauthorized, "not authenticated")
	case errors.As(err, &partial):
		logger.Error().Strs("failed_feeds", partial.Failed).Msg("scan incomplete")
		respond.Error(w, r, http.StatusBadGateway, partial.Error())
	default:
		logger.Error().Err(err).Msg("scan failed")
		respond.Error(w, r, http.StatusInternalServerError, err.Error())
	}
}

// Latest returns the whole stored snapshot.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	h.withSnapshot(w, r, func(snap *domain.ScanSnapshot) any { return snap })
}

func (h *Handler) SecureScore(w http.ResponseWriter, r *http.Request) {
	h.withSnapshot(w, r, func(snap *domain.ScanSnapshot) any { return snap.SecureScore })
}

func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	h.withSnapshot(w, r, func(snap *domain.ScanSnapshot) any { return orEmpty(snap.Recommendations) })
}

func (h *Handler) PublicResources(w http.ResponseWriter, r *http.Request) {
	h.withSnapshot(w, r, func(snap *domain.ScanSnapshot) any { return orEmpty(snap.PublicResources) })
}

func (h *Handler) NetworkSecurityGroups(w http.ResponseWriter, r *http.Request) {
	h.withSnapshot(w, r, func(snap *domain.ScanSnapshot) any { return orEmpty(snap.NetworkSecurityGroups) })
}

func (h *Handler) RoleAssignments(w http.ResponseWriter, r *http.Request) {
	h.withSnapshot(w, r, func(snap *domain.ScanSnapshot) any { return orEmpty(snap.RoleAssignments) })
}

func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	h.withSnapshot(w, r, func(snap *domain.ScanSnapshot) any { return orEmpty(snap.Users) })
}

func (h *Handler) PolicyAssignments(w http.ResponseWriter, r *http.Request) {
	h.withSnapshot(w, r, func(snap *domain.ScanSnapshot) any { return orEmpty(snap.PolicyAssignments) })
}

func (h *Handler) ComplianceResults(w http.ResponseWriter, r *http.Request) {
	h.withSnapshot(w, r, func(snap *domain.ScanSnapshot) any { return orEmpty(snap.ComplianceResults) })
}

// identitySummary is the per-category envelope with top roles resolved.
type identitySummary struct {
	Total      int                       `json:"total"`
	Categories map[string]categoryDetail `json:"categories"`
}

type categoryDetail struct {
	Count    int                `json:"count"`
	TopRoles []domain.RoleCount `json:"top_roles"`
}

// IdentitySummary returns the aggregated breakdown with the most common
// roles per category.
func (h *Handler) IdentitySummary(w http.ResponseWriter, r *http.Request) {
	h.withSnapshot(w, r, func(snap *domain.ScanSnapshot) any {
		summary := identitySummary{
			Total:      snap.IdentityBreakdown.Total(),
			Categories: make(map[string]categoryDetail, len(snap.IdentityBreakdown)),
		}
		for category, breakdown := range snap.IdentityBreakdown {
			summary.Categories[string(category)] = categoryDetail{
				Count:    breakdown.Count,
				TopRoles: identity.TopRoles(breakdown, topRolesPerCategory),
			}
		}
		return summary
	})
}

// IdentityBreakdown returns the raw category-to-roles aggregate.
func (h *Handler) IdentityBreakdown(w http.ResponseWriter, r *http.Request) {
	h.withSnapshot(w, r, func(snap *domain.ScanSnapshot) any { return snap.IdentityBreakdown })
}

func (h *Handler) withSnapshot(w http.ResponseWriter, r *http.Request, view func(*domain.ScanSnapshot) any) {
	snap, err := h.scanner.Latest(r.Context())
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		respond.Error(w, r, http.StatusNotFound, "no data - run a scan first")
		return
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load snapshot")
		respond.Error(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	respond.JSON(w, r, http.StatusOK, view(snap))
}

// orEmpty keeps empty feeds rendering as [] instead of null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
