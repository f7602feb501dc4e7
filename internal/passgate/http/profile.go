package http

import (
	"net/http"
	"time"

	"github.com/passgate/passgate/pkg/httpx"
)

// ProfileHandler serves the protected resource behind full authentication.
type ProfileHandler struct{}

type profileResponse struct {
	Username       string    `json:"username"`
	LoginTimestamp time.Time `json:"login_timestamp"`
}

// HandleProfile handles GET /v1/profile. RequireAuthenticated guards the
// route, so by the time we get here the session is authenticated.
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())
	if sess == nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "No session on request.")
		return
	}

	sess.Lock()
	resp := profileResponse{
		Username:       sess.State.AuthenticatedUsername,
		LoginTimestamp: sess.State.LoginTimestamp,
	}
	sess.Unlock()

	httpx.WriteJSON(w, http.StatusOK, resp)
}
