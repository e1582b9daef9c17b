package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/pastebin/internal/auth"
	"github.com/sakif/pastebin/internal/service"
)

// replenishTimeout bounds the background pool write dispatched per landing
// page view. Decoupled from the request context: the page response doesn't
// wait for the pool, so the pool shouldn't die with the request either.
const replenishTimeout = 10 * time.Second

// HomeHandler serves the landing page.
//
// Each authenticated view also grows the identifier pool by one slot. That
// coupling (pool depth driven by landing traffic) is the system's designed
// supply side; publishing has its own demand-driven top-up when the pool
// runs dry, so a publish-heavy, browse-light workload still works.
type HomeHandler struct {
	pool     *service.PoolService
	renderer *Renderer
	logger   *slog.Logger
}

// NewHomeHandler creates a HomeHandler.
func NewHomeHandler(pool *service.PoolService, renderer *Renderer, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{
		pool:     pool,
		renderer: renderer,
		logger:   logger,
	}
}

// HandleIndex renders the landing page for the authenticated user and
// dispatches one background pool replenishment.
//
// HTTP: GET /
// Auth: required (RequirePage middleware — unauthenticated visitors are
// redirected to /auth/login before reaching this handler)
//
// The replenishment is an explicit fire-and-forget task. Its failure is
// logged and counted inside the pool service; the page renders regardless.
func (h *HomeHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), replenishTimeout)
		defer cancel()
		// Replenish logs and counts its own failures.
		_ = h.pool.Replenish(ctx)
	}()

	h.renderer.Render(w, http.StatusOK, "index", map[string]any{
		"Title":    "Pastebin",
		"Username": user.Username,
		"Email":    user.Email,
	})
}
