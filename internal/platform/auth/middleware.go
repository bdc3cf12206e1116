package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type AuthorizeFunc func(r *http.Request, identity Identity) error

// Middleware authenticates every request outside SkipPrefixes and
// attaches the resulting Identity to the request context.
type Middleware struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	Authorize     AuthorizeFunc
	SkipPrefixes  []string
}

func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skips(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.Authenticator.Authenticate(r.Context(), r)
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, ErrUnauthenticated) {
				reason = "unauthenticated"
			}
			m.deny(w, r, http.StatusUnauthorized, "unauthorized", reason, err)
			return
		}

		if m.Authorize != nil {
			if err := m.Authorize(r, identity); err != nil {
				m.deny(w, r, http.StatusForbidden, "forbidden", "forbidden", err, "subject", identity.Subject)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}

func (m Middleware) skips(path string) bool {
	for _, prefix := range m.SkipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, status int, code, reason string, err error, extra ...any) {
	if m.Logger != nil {
		fields := []any{
			"reason", reason,
			"status", status,
			"request_id", r.Header.Get("X-Request-Id"),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		}
		m.Logger.Warn("auth deny", append(fields, extra...)...)
	}
	writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}
