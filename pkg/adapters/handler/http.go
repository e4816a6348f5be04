package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aurora-borealis222/url-shortener/pkg/core/domain"
	"github.com/aurora-borealis222/url-shortener/pkg/ports"
)

type HTTPHandler struct {
	service ports.LinkService
	logger  *slog.Logger
}

func NewHTTPHandler(service ports.LinkService, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

// ShortenRequest payload
type ShortenRequest struct {
	OriginalURL string `json:"original_url"`
	CustomAlias string `json:"custom_alias,omitempty"`
}

// Shorten creates a link. expires_at (RFC 3339) and user_id ride in as
// query parameters; an authenticated caller's token subject takes
// precedence over user_id as the owner.
func (h *HTTPHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var expiresAt *time.Time
	if raw := r.URL.Query().Get("expires_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "expires_at must be RFC 3339")
			return
		}
		expiresAt = &t
	}

	owner, ok := Requester(r.Context())
	if !ok {
		owner = r.URL.Query().Get("user_id")
	}

	link, err := h.service.Shorten(r.Context(), req.OriginalURL, req.CustomAlias, expiresAt, owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, link.Summary())
}

// Search lists active links matching the original URL exactly.
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	originalURL := r.URL.Query().Get("original_url")
	if originalURL == "" {
		writeJSONError(w, http.StatusBadRequest, "original_url query parameter is required")
		return
	}

	summaries, err := h.service.Search(r.Context(), originalURL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// HistoryExpired lists the caller's expired links, tombstones included.
func (h *HTTPHandler) HistoryExpired(w http.ResponseWriter, r *http.Request) {
	requester, _ := Requester(r.Context())

	links, err := h.service.ListExpired(r.Context(), requester)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, links)
}

// ListAll lists the caller's active links.
func (h *HTTPHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	requester, _ := Requester(r.Context())

	links, err := h.service.ListActive(r.Context(), requester)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, links)
}

// Redirect resolves the short code and redirects to the original URL.
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	originalURL, err := h.service.Resolve(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, originalURL, http.StatusTemporaryRedirect)
}

// Stats returns the statistics projection of an active link.
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	stats, err := h.service.Stats(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Delete soft-deletes the caller's link.
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	requester, _ := Requester(r.Context())

	if err := h.service.Remove(r.Context(), code, requester); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Rotate assigns a freshly generated code to the caller's link.
func (h *HTTPHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	requester, _ := Requester(r.Context())

	link, err := h.service.Rotate(r.Context(), code, requester)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, link.Summary())
}

// writeError maps the service error taxonomy onto HTTP statuses.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case domain.IsConflict(err):
		status = http.StatusConflict
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsForbidden(err):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidURL), errors.Is(err, domain.ErrInvalidCode):
		status = http.StatusBadRequest
	case domain.IsTransient(err):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSONError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
