package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/pastebin/internal/apperror"
	"github.com/sakif/pastebin/internal/auth"
	"github.com/sakif/pastebin/internal/mailer"
	"github.com/sakif/pastebin/internal/metrics"
	"github.com/sakif/pastebin/internal/service"
)

// AuthHandler manages registration, email confirmation, login, logout, and
// the current-user endpoint.
//
// COOKIE-BASED SESSIONS:
// The JWT lives in the HttpOnly "access_token" cookie, path "/". HttpOnly
// means JavaScript cannot read it, which keeps XSS from stealing the token.
type AuthHandler struct {
	authSvc   *service.AuthService
	sender    mailer.Sender
	collector metrics.Collector
	renderer  *Renderer
	baseURL   string
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected; the
// handler has no knowledge of how they're constructed.
func NewAuthHandler(
	authSvc *service.AuthService,
	sender mailer.Sender,
	collector metrics.Collector,
	renderer *Renderer,
	baseURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authSvc:   authSvc,
		sender:    sender,
		collector: collector,
		renderer:  renderer,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// HandleRegisterPage renders the registration form.
//
// HTTP: GET /auth/register
func (h *AuthHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "register", map[string]any{
		"Title": "Register",
	})
}

// HandleRegister creates an inactive account and dispatches the
// confirmation email.
//
// HTTP: POST /auth/register (form: username, email, password)
//
// The email is fire-and-forget: registration has already committed by the
// time delivery is attempted, and a delivery failure is logged and counted
// but never reported to the registrant or rolled back.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, apperror.ValidationFailed("", "malformed form data"))
		return
	}

	user, err := h.authSvc.Register(r.Context(),
		r.PostFormValue("username"),
		r.PostFormValue("email"),
		r.PostFormValue("password"),
	)
	if err != nil {
		// Duplicate email and validation failures both map to 400 here.
		writeError(w, err)
		return
	}

	mailer.SendConfirmationAsync(h.sender, h.logger, h.collector,
		user.Email, user.ConfirmationToken, h.baseURL)

	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleConfirm activates the account holding the confirmation token.
//
// HTTP: GET /auth/confirm/{token}
func (h *AuthHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.authSvc.Confirm(r.Context(), token); err != nil {
		writeError(w, err) // invalid or already-used token → 400
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLoginPage renders the login form.
//
// HTTP: GET /auth/login
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "login", map[string]any{
		"Title": "Log in",
	})
}

// HandleLogin checks credentials and establishes the session cookie.
//
// HTTP: POST /auth/login (form: username, password)
//
// ERROR SURFACES DIFFER BY CASE:
//   - bad username or password → the inline error page, not a raw 4xx; the
//     user stays in the HTML flow and can try again
//   - unconfirmed email → 400 (the account exists; the fix is in their inbox)
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, apperror.ValidationFailed("", "malformed form data"))
		return
	}

	token, err := h.authSvc.Login(r.Context(),
		r.PostFormValue("username"),
		r.PostFormValue("password"),
	)
	if err != nil {
		if errors.Is(err, apperror.ErrInvalidCredentials) {
			h.renderer.Render(w, http.StatusOK, "invalid_credentials", map[string]any{
				"Title": "Log in",
			})
			return
		}
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.authSvc.SessionTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // enable in production behind HTTPS
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout clears the session cookie and returns to the login page.
//
// HTTP: GET /auth/logout
//
// The token itself stays valid until expiry — there is no revocation list —
// but without the cookie the browser can't present it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // delete immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

// HandleMe returns the authenticated user's username and email.
//
// HTTP: GET /auth/users/me
// Auth: required (RequireAuth middleware)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// Should never happen on a protected route, but be safe.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}
