package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aurora-borealis222/url-shortener/pkg/config"
)

type contextKey string

const requesterKey contextKey = "requester"

type Middleware struct {
	jwtSecret []byte
	logger    *slog.Logger
}

func NewMiddleware(cfg *config.Config, logger *slog.Logger) *Middleware {
	return &Middleware{
		jwtSecret: []byte(cfg.JWTSecret),
		logger:    logger,
	}
}

// RequireAuth verifies the JWT token from the auth cookie and stores its
// subject as the requester identity. Requests without a valid token get 401.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := m.subjectFromCookie(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(withRequester(r.Context(), subject)))
	}
}

// OptionalAuth stores the requester identity when a valid token is present
// and lets the request through either way. Used by shorten, where anonymous
// callers are allowed.
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if subject, ok := m.subjectFromCookie(r); ok {
			r = r.WithContext(withRequester(r.Context(), subject))
		}
		next.ServeHTTP(w, r)
	}
}

func (m *Middleware) subjectFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie("auth_token")
	if err != nil {
		return "", false
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		return m.jwtSecret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// RequestLogger tags each request with an id and logs method, path, status
// and duration.
func (m *Middleware) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		m.logger.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func withRequester(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, requesterKey, subject)
}

// Requester returns the authenticated caller identity, if any.
func Requester(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(requesterKey).(string)
	return subject, ok && subject != ""
}
