package session

import (
	"context"
	"net/http"

	"github.com/itchan-dev/schan/internal/logger"
)

type contextKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's session, nil outside Middleware.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// Middleware attaches the visitor's session to the request and stores it after the handler ran.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, fresh, err := m.load(w, r)
		if err != nil {
			logger.Log.Error("failed to start session", "component", "session", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		base := *s
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		if fresh {
			m.Save(s)
			return
		}
		m.commit(s, base)
	})
}
