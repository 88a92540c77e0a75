package app

import (
	"net/http"

	"github.com/torchlightrpg/torchlight/internal/maintenance"
	"github.com/torchlightrpg/torchlight/internal/services/app/templates"
)

// maintenanceMiddleware evaluates the gate before any route handler runs.
// Requests for the maintenance page while the site is up bounce back home;
// everything else redirects to the maintenance page while the flag is set,
// unless the path matches an exclusion.
func (h *handler) maintenanceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch h.gate.Decide(r.URL.Path) {
		case maintenance.RedirectHome:
			http.Redirect(w, r, "/", http.StatusFound)
		case maintenance.RedirectMaintenance:
			http.Redirect(w, r, h.gate.Page, http.StatusFound)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (h *handler) handleMaintenancePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	h.renderPage(w, r, templates.MaintenancePage())
}

// handleMaintenanceStatus reports the gate decision for a caller-supplied
// path. Status pollers and the middleware share one gate, so both sites
// always agree on the same flag and exclusion table.
func (h *handler) handleMaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/"
	}
	redirect := ""
	switch h.gate.Decide(path) {
	case maintenance.RedirectHome:
		redirect = "/"
	case maintenance.RedirectMaintenance:
		redirect = h.gate.Page
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":  h.gate.Enabled,
		"path":     path,
		"blocked":  redirect == h.gate.Page,
		"redirect": redirect,
	})
}
