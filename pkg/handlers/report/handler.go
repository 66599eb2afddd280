package report

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/sectools/azrecon/pkg/handlers/respond"
	"github.com/sectools/azrecon/pkg/models/api"
	"github.com/sectools/azrecon/pkg/services/auth"
	"github.com/sectools/azrecon/pkg/services/report"
	"github.com/sectools/azrecon/pkg/store/sqlite/snapshot"
)

// TenantSource names the tenant reports are generated for.
type TenantSource interface {
	TenantID() string
}

type Handler struct {
	manager *report.Manager
	tenant  TenantSource
}

func NewHandler(manager *report.Manager, tenant TenantSource) *Handler {
	return &Handler{
		manager: manager,
		tenant:  tenant,
	}
}

// Generate renders the latest snapshot into a new report file.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	format, err := report.ParseFormat(req.Format)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	generated, err := h.manager.Generate(r.Context(), h.tenant.TenantID(), format)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		respond.Error(w, r, http.StatusNotFound, "no data - run a scan first")
		return
	case errors.Is(err, auth.ErrNotAuthenticated):
		respond.Error(w, r, http.StatusUnauthorized, "not authenticated")
		return
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("report generation failed")
		respond.Error(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	respond.JSON(w, r, http.StatusCreated, toAPIReport(*generated))
}

// List returns stored reports, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.manager.List()
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list reports")
		respond.Error(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	response := make([]api.Report, 0, len(reports))
	for _, rep := range reports {
		response = append(response, toAPIReport(rep))
	}
	respond.JSON(w, r, http.StatusOK, response)
}

// Download serves a stored report file.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, err := h.manager.Open(id)
	if err != nil {
		respond.Error(w, r, http.StatusNotFound, "report not found")
		return
	}
	http.ServeFile(w, r, path)
}

func toAPIReport(rep report.GeneratedReport) api.Report {
	return api.Report{
		ID:          rep.ID,
		TenantID:    rep.TenantID,
		Format:      string(rep.Format),
		Path:        rep.Path,
		GeneratedAt: rep.GeneratedAt,
		SizeBytes:   rep.SizeBytes,
	}
}
