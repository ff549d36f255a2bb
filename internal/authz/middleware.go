package authz

import (
	"log/slog"
	"net/http"

	"github.com/hostelcore/hostelcore/internal/shared"
)

// Middleware wires authorization guards for HTTP handlers. Guards read the
// effective snapshot from the request session; a session without a snapshot
// is denied outright.
type Middleware struct {
	Logger  *slog.Logger
	Metrics *Metrics
}

// RequireRoute ensures the session's snapshot grants the route key.
func (m Middleware) RequireRoute(routeKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := FromSession(shared.SessionFromContext(r.Context()))
			allowed := ok && snap.Effective.CanRoute(routeKey)
			m.Metrics.Decision("route", allowed)
			if !allowed {
				m.deny(w, r, "route", routeKey)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the snapshot grants at least one of the capabilities.
func (m Middleware) RequireAny(caps ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := FromSession(shared.SessionFromContext(r.Context()))
			allowed := ok && snap.Effective.CanAnyCapability(caps)
			m.Metrics.Decision("capability_any", allowed)
			if !allowed {
				m.deny(w, r, "capability_any", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAll ensures the snapshot grants every capability. A guard built with
// an empty list denies everything, matching the evaluator's non-vacuous rule.
func (m Middleware) RequireAll(caps ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := FromSession(shared.SessionFromContext(r.Context()))
			allowed := ok && snap.Effective.CanAllCapabilities(caps)
			m.Metrics.Decision("capability_all", allowed)
			if !allowed {
				m.deny(w, r, "capability_all", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, kind, key string) {
	if m.Logger != nil {
		m.Logger.Warn("authorization denied",
			slog.String("kind", kind),
			slog.String("key", key),
			slog.String("path", r.URL.Path),
		)
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
