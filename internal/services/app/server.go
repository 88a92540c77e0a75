// Package app hosts the tracker HTTP service: campaign and team management,
// encounter initiative sheets, note sharing, the capability-grant invite and
// share flows, and the maintenance gate.
package app

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/torchlightrpg/torchlight/internal/maintenance"
	apperrors "github.com/torchlightrpg/torchlight/internal/platform/errors"
	"github.com/torchlightrpg/torchlight/internal/services/app/domain/grant"
	"github.com/torchlightrpg/torchlight/internal/services/app/session"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage"
	"github.com/torchlightrpg/torchlight/internal/services/app/templates"
)

// Config defines the inputs for the tracker app server.
type Config struct {
	HTTPAddr string
	// GrantSecret signs capability grants (invites and shares).
	GrantSecret []byte
	// SessionSecret verifies session tokens minted by the identity provider.
	SessionSecret []byte
	// MaintenanceFlag is the raw tri-typed maintenance value as it arrived
	// from the environment.
	MaintenanceFlag any
	// MaintenanceExcluded lists glob patterns never blocked by the gate.
	MaintenanceExcluded []string
	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

// handler carries the app dependencies for route handlers.
type handler struct {
	store      storage.Store
	grantCfg   grant.Config
	sessionCfg session.Config
	gate       maintenance.Gate
}

// NewHandler assembles the app routes with the maintenance gate wrapped
// around them.
func NewHandler(cfg Config, store storage.Store) http.Handler {
	h := &handler{
		store: store,
		grantCfg: grant.Config{
			Secret: cfg.GrantSecret,
			Now:    cfg.Now,
		},
		sessionCfg: session.Config{
			Secret: cfg.SessionSecret,
			Now:    cfg.Now,
		},
		gate: maintenance.NewGate(cfg.MaintenanceFlag, append([]string{
			"/maintenance/status",
			"/healthz",
		}, cfg.MaintenanceExcluded...)...),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.HandleFunc("/maintenance", h.handleMaintenancePage)
	mux.HandleFunc("/maintenance/status", h.handleMaintenanceStatus)

	mux.HandleFunc("/campaign/join", h.handleCampaignJoin)
	mux.HandleFunc("/campaign/validate-join", h.handleCampaignValidateJoin)
	mux.HandleFunc("/campaign/accept-invite", h.handleCampaignAcceptInvite)
	mux.HandleFunc("/encounter/share", h.handleEncounterShare)

	mux.HandleFunc("/campaigns", h.handleCampaigns)
	mux.HandleFunc("/campaigns/", h.handleCampaignSubtree)
	mux.HandleFunc("/encounters/", h.handleEncounterSubtree)
	mux.HandleFunc("/notes/", h.handleNoteSubtree)

	mux.HandleFunc("/", h.handleHome)

	return h.maintenanceMiddleware(mux)
}

// Server hosts the tracker app HTTP server.
type Server struct {
	httpServer *http.Server
	store      *closerStore
}

type closerStore struct {
	storage.Store
	close func() error
}

// NewServer builds a server from config and an opened store. When closeStore
// is non-nil it is invoked by Close.
func NewServer(cfg Config, store storage.Store, closeStore func() error) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           NewHandler(cfg, store),
			ReadHeaderTimeout: 5 * time.Second,
		},
		store: &closerStore{Store: store, close: closeStore},
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	if s == nil || s.store == nil || s.store.close == nil {
		return nil
	}
	return s.store.close()
}

// userID resolves the requester identity, or empty when unauthenticated.
func (h *handler) userID(r *http.Request) string {
	return session.FromRequest(h.sessionCfg, r)
}

func (h *handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.renderPage(w, r, templates.HomePage())
}

// renderPage writes a templ component, logging render failures.
func (h *handler) renderPage(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		log.Printf("app: failed to render page: %v", err)
	}
}

// wantsHTML reports whether the client prefers an HTML response.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("app: failed to encode response: %v", err)
	}
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps a domain error onto the JSON error envelope. Failures are
// terminal for the request; there is no retry or partial-success path.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	writeJSON(w, code.HTTPStatus(), errorBody{
		Error: errorDetail{
			Code:    string(code),
			Message: err.Error(),
		},
	})
}

// decodeJSON decodes a request body, mapping failures to invalid-request.
func decodeJSON(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidRequest, "invalid request body", err)
	}
	return nil
}

// requireMethod writes a method-not-allowed response unless r matches.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{
			Error: errorDetail{Code: string(apperrors.CodeInvalidRequest), Message: "method not allowed"},
		})
		return false
	}
	return true
}

// pathID parses a numeric path segment.
func pathID(segment string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(segment), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.New(apperrors.CodeInvalidRequest, "invalid id")
	}
	return id, nil
}
