package http

import (
	"context"
	"net/http"

	"github.com/passgate/passgate/internal/passgate/domain"
	"github.com/passgate/passgate/internal/passgate/session"
	"github.com/passgate/passgate/pkg/httpx"
)

// SessionCookieName carries the opaque session ID. The cookie holds no state
// itself; everything lives server-side in the session manager.
const SessionCookieName = "passgate_session"

type ctxKey string

const ctxKeySession ctxKey = "session"

// SessionMiddleware resumes the client's server-side session from the cookie
// (creating a fresh anonymous one when the cookie is missing, stale, or
// unknown) and injects it into the request context.
func SessionMiddleware(mgr *session.Manager) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *session.Session

			if c, err := r.Cookie(SessionCookieName); err == nil {
				if existing, ok := mgr.Get(c.Value); ok {
					sess = existing
				}
			}

			if sess == nil {
				sess = mgr.Create()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    sess.ID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), ctxKeySession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFromCtx returns the session injected by SessionMiddleware, or nil
// when the middleware did not run.
func sessionFromCtx(ctx context.Context) *session.Session {
	if sess, ok := ctx.Value(ctxKeySession).(*session.Session); ok {
		return sess
	}
	return nil
}

// RequireAuthenticated rejects requests whose session is not in the
// authenticated phase. Observing the wrong phase is an authorization
// failure, never a crash: the caller is pointed back at the login entry
// point.
func RequireAuthenticated() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFromCtx(r.Context())
			if sess == nil {
				httpx.WriteError(w, http.StatusUnauthorized, "not_authenticated", "Log in to access this resource.")
				return
			}

			sess.Lock()
			phase := sess.State.Phase
			sess.Unlock()

			if phase != domain.PhaseAuthenticated {
				httpx.WriteError(w, http.StatusUnauthorized, "not_authenticated", "Log in to access this resource.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
