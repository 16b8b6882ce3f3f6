package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rzbill/zkhook/internal/filter"
	"github.com/rzbill/zkhook/internal/subscription"
)

// GeneralController serves health and the read-only filter listing.
type GeneralController struct {
	reg    Registry
	health HealthChecker
}

// NewGeneralController creates a new general controller.
func NewGeneralController(reg Registry, health HealthChecker) *GeneralController {
	return &GeneralController{reg: reg, health: health}
}

// RegisterRoutes registers general routes:
// - GET /healthz
// - GET /v1/filters
func (c *GeneralController) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", c.handleHealth)
	r.Get("/v1/filters", c.handleListFilters)
}

// handleHealth returns 200 {"status":"ok"} if the store answers, 503 otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if c.health != nil {
		if err := c.health.CheckHealth(r.Context()); err != nil {
			writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleListFilters lists stored filters with their subscriber counts. An
// optional ?kind= narrows the listing to one filter kind.
func (c *GeneralController) handleListFilters(w http.ResponseWriter, r *http.Request) {
	resp := filtersResp{Filters: []filterJSON{}, Stats: c.reg.Stats()}
	collect := func(f filter.Filter, set subscription.Set) error {
		resp.Filters = append(resp.Filters, filterJSON{Filter: f, Key: f.String(), Subscribers: set.Len()})
		resp.Total += set.Len()
		return nil
	}

	var err error
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, perr := filter.ParseKind(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		err = c.reg.WalkKind(r.Context(), k, collect)
	} else {
		err = c.reg.Walk(r.Context(), collect)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		writeError(w, http.StatusInternalServerError, "failed to list filters")
		return
	}
	writeJSON(w, resp)
}
