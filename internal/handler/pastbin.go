package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/pastebin/internal/apperror"
	"github.com/sakif/pastebin/internal/auth"
	"github.com/sakif/pastebin/internal/service"
)

// PastbinHandler serves the message pages: creation, retrieval by
// identifier, and the full listing.
type PastbinHandler struct {
	messages *service.MessageService
	renderer *Renderer
	baseURL  string
	logger   *slog.Logger
}

// NewPastbinHandler creates a PastbinHandler.
func NewPastbinHandler(messages *service.MessageService, renderer *Renderer, baseURL string, logger *slog.Logger) *PastbinHandler {
	return &PastbinHandler{
		messages: messages,
		renderer: renderer,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// HandleCreatePage renders the message composition form.
//
// HTTP: GET /pastbin/create_message
// Auth: required (RequirePage middleware)
func (h *PastbinHandler) HandleCreatePage(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "create_message", map[string]any{
		"Title": "New message",
	})
}

// HandleCreate publishes a message and shows its retrieval URL.
//
// HTTP: POST /pastbin/create_message (form: text)
// Auth: required (RequirePage middleware)
//
// Publish consumes one pooled identifier. If the pool is exhausted even
// after the service's replenish-and-retry, the user gets an explicit 503 —
// never a success page with a null identifier.
func (h *PastbinHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, apperror.ValidationFailed("", "malformed form data"))
		return
	}

	msg, err := h.messages.Publish(r.Context(), user.Username, r.PostFormValue("text"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, "message_created", map[string]any{
		"Title": "Message created",
		"URL":   fmt.Sprintf("%s/pastbin/message/%s", h.baseURL, msg.ID),
	})
}

// HandleMessage renders a single message by its identifier.
//
// HTTP: GET /pastbin/message/{id}
//
// No session required — a message link is shareable with anyone.
func (h *PastbinHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msg, err := h.messages.Get(r.Context(), id)
	if err != nil {
		writeError(w, err) // unknown id → 404
		return
	}

	h.renderer.Render(w, http.StatusOK, "message", map[string]any{
		"Title":    "Message",
		"Username": msg.Username,
		"Text":     msg.Text,
	})
}

// HandleAllMessages renders every published message, unpaginated.
//
// HTTP: GET /pastbin/all_messages
// Auth: required (RequirePage middleware)
func (h *PastbinHandler) HandleAllMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	h.renderer.Render(w, http.StatusOK, "messages", map[string]any{
		"Title":    "All messages",
		"Messages": msgs,
	})
}
