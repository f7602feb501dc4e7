package http

import (
	"net/http"

	"github.com/passgate/passgate/internal/passgate/service"
	"github.com/passgate/passgate/pkg/httpx"
)

// LogoutHandler returns the session to anonymous.
type LogoutHandler struct {
	AuthService *service.AuthService
}

// HandleLogout handles POST /v1/logout. Idempotent: logging out an already
// anonymous session succeeds the same way.
func (h *LogoutHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())
	if sess == nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "No session on request.")
		return
	}

	h.AuthService.Logout(sess)
	w.WriteHeader(http.StatusNoContent)
}
