package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sbomify/assessments/internal/application/analysis"
	"github.com/sbomify/assessments/internal/application/orchestrator"
	"github.com/sbomify/assessments/internal/application/settings"
	appstatus "github.com/sbomify/assessments/internal/application/status"
	domai "github.com/sbomify/assessments/internal/domain/ai"
	domain "github.com/sbomify/assessments/internal/domain/assessments"
	"github.com/sbomify/assessments/internal/domain/hierarchy"
	"github.com/sbomify/assessments/internal/middleware"
)

type Router struct {
	orchSvc     *orchestrator.Service
	statusSvc   *appstatus.Service
	settingsSvc *settings.Service
	analysisSvc *analysis.Service
	runs        domain.Repository
	catalog     hierarchy.Catalog
}

func NewRouter(
	orchSvc *orchestrator.Service,
	statusSvc *appstatus.Service,
	settingsSvc *settings.Service,
	analysisSvc *analysis.Service,
	runs domain.Repository,
	catalog hierarchy.Catalog,
) http.Handler {
	r := &Router{
		orchSvc:     orchSvc,
		statusSvc:   statusSvc,
		settingsSvc: settingsSvc,
		analysisSvc: analysisSvc,
		runs:        runs,
		catalog:     catalog,
	}
	mux := chi.NewRouter()

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Post("/webhook/sbom-created", r.wrap(r.handleWebhook))
		rt.Post("/sboms/{id}/assess", r.wrap(r.handleAssess))
		rt.Get("/sboms/{id}/assessments", r.wrap(r.handleSBOMAssessments))
		rt.Get("/sboms/{id}/assessments/badge", r.wrap(r.handleBadge))
		rt.Get("/components/{id}/status", r.wrap(r.handleComponentStatus))
		rt.Get("/projects/{id}/status", r.wrap(r.handleProjectStatus))
		rt.Get("/products/{id}/status", r.wrap(r.handleProductStatus))
		rt.Get("/plugins", r.wrap(r.handlePlugins))
		rt.Get("/settings/plugins", r.wrap(r.handleSettingsView))
		rt.Put("/settings/plugins", r.wrap(r.handleSettingsUpdate))
		rt.Post("/sboms/{sid}/assessments/{rid}/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/sboms/{sid}/analyses", r.wrap(r.handleAnalysesList))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var verr *settings.ValidationError
			switch {
			case errors.Is(err, sql.ErrNoRows),
				errors.Is(err, domain.ErrNotFound),
				errors.Is(err, hierarchy.ErrNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, domai.ErrQuotaExceeded):
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			case errors.As(err, &verr):
				writeJSONStatus(w, http.StatusUnprocessableEntity, map[string]any{
					"error":           verr.Error(),
					"invalid_plugins": verr.InvalidPlugins,
					"not_entitled":    verr.NotEntitled,
				})
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// sbomForTenant loads the artifact and enforces tenant ownership.
func (r *Router) sbomForTenant(req *http.Request, tenant, id string) (*hierarchy.SBOM, error) {
	if err := middleware.ValidateTenantID(tenant); err != nil {
		return nil, err
	}
	return r.catalog.SBOM(req.Context(), tenant, id)
}

// POST /v1/{tenant}/webhook/sbom-created
// Upstream pushes blind: malformed payloads are logged and acknowledged so
// the sender never retries forever.
func (r *Router) handleWebhook(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		SBOMID string `json:"sbom_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.SBOMID == "" {
		log.Printf("webhook: tenant=%s malformed sbom-created payload: %v", tenant, err)
		writeJSONStatus(w, http.StatusAccepted, map[string]any{"status": "ignored"})
		return nil
	}

	queued, err := r.orchSvc.EnqueueAssessments(req.Context(), tenant, body.SBOMID, domain.ReasonOnUpload)
	if err != nil {
		// webhook harus tetap 202; kegagalan internal cukup dicatat
		log.Printf("webhook: tenant=%s sbom=%s enqueue error: %v", tenant, body.SBOMID, err)
		writeJSONStatus(w, http.StatusAccepted, map[string]any{"status": "error_logged"})
		return nil
	}

	writeJSONStatus(w, http.StatusAccepted, map[string]any{
		"status": "queued",
		"queued": queued,
	})
	return nil
}

// POST /v1/{tenant}/sboms/{id}/assess
func (r *Router) handleAssess(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	if _, err := r.sbomForTenant(req, tenant, id); err != nil {
		return err
	}
	queued, err := r.orchSvc.EnqueueAssessments(req.Context(), tenant, id, domain.ReasonManual)
	if err != nil {
		return err
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]any{
		"status": "queued",
		"queued": queued,
	})
	return nil
}

// GET /v1/{tenant}/sboms/{id}/assessments?limit=50
func (r *Router) handleSBOMAssessments(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	if _, err := r.sbomForTenant(req, tenant, id); err != nil {
		if errors.Is(err, hierarchy.ErrNotFound) {
			// an unknown artifact reads as empty, never as an error
			return writeJSON(w, map[string]any{
				"status_summary": appstatus.EmptySBOMStatus(),
				"latest_runs":    []*domain.Run{},
				"history":        []*domain.Run{},
			})
		}
		return err
	}

	summary, err := r.statusSvc.SBOMStatus(req.Context(), id)
	if err != nil {
		return err
	}
	latest, err := r.runs.LatestPerPlugin(req.Context(), id)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)
	history, err := r.runs.All(req.Context(), id, limit)
	if err != nil {
		return err
	}

	return writeJSON(w, map[string]any{
		"status_summary": summary,
		"latest_runs":    latest,
		"history":        history,
	})
}

// GET /v1/{tenant}/sboms/{id}/assessments/badge
// Reduced payload for embedding; skips the history load entirely.
func (r *Router) handleBadge(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	if _, err := r.sbomForTenant(req, tenant, id); err != nil {
		if errors.Is(err, hierarchy.ErrNotFound) {
			return writeJSON(w, appstatus.EmptySBOMStatus())
		}
		return err
	}
	summary, err := r.statusSvc.SBOMStatus(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, summary)
}

// GET /v1/{tenant}/components/{id}/status
func (r *Router) handleComponentStatus(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	rollup, err := r.statusSvc.ComponentStatus(req.Context(), tenant, id)
	if err != nil {
		return err
	}
	return writeJSON(w, rollup)
}

// GET /v1/{tenant}/projects/{id}/status
func (r *Router) handleProjectStatus(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	rollup, err := r.statusSvc.ProjectStatus(req.Context(), tenant, id)
	if err != nil {
		return err
	}
	return writeJSON(w, rollup)
}

// GET /v1/{tenant}/products/{id}/status
func (r *Router) handleProductStatus(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	rollup, err := r.statusSvc.ProductStatus(req.Context(), tenant, id)
	if err != nil {
		return err
	}
	return writeJSON(w, rollup)
}

// GET /v1/{tenant}/plugins
func (r *Router) handlePlugins(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, r.orchSvc.Registry.ListEnabled())
}

// GET /v1/{tenant}/settings/plugins
func (r *Router) handleSettingsView(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	views, err := r.settingsSvc.View(req.Context(), tenant)
	if err != nil {
		return err
	}
	return writeJSON(w, views)
}

// PUT /v1/{tenant}/settings/plugins
// Body: {"enabled": ["..."], "configs": {"plugin": {"key": "value"}}}
func (r *Router) handleSettingsUpdate(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var body struct {
		Enabled []string                  `json:"enabled"`
		Configs map[string]map[string]any `json:"configs"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding settings payload: %w", err)
	}
	for _, name := range body.Enabled {
		if err := middleware.ValidatePluginName(name); err != nil {
			return &settings.ValidationError{InvalidPlugins: []string{name}}
		}
	}

	stored, err := r.settingsSvc.Update(req.Context(), tenant, body.Enabled, body.Configs)
	if err != nil {
		return err
	}
	return writeJSON(w, stored)
}

// POST /v1/{tenant}/sboms/{sid}/assessments/{rid}/analyze
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	rid := chi.URLParam(req, "rid")

	if err := middleware.ValidateRunID(rid); err != nil {
		return err
	}
	a, err := r.analysisSvc.AnalyzeRun(req.Context(), tenant, domain.RunID(rid))
	if err != nil {
		return err
	}
	return writeJSON(w, a)
}

// GET /v1/{tenant}/sboms/{sid}/analyses?page=&page_size=
func (r *Router) handleAnalysesList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	sid := chi.URLParam(req, "sid")

	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.analysisSvc.List(req.Context(), tenant, sid, page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}
