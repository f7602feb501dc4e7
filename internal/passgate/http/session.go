package http

import (
	"net/http"
	"time"

	"github.com/passgate/passgate/internal/passgate/domain"
	"github.com/passgate/passgate/pkg/httpx"
)

// SessionHandler reports the caller's current authentication phase.
type SessionHandler struct{}

type sessionResponse struct {
	Phase           domain.Phase `json:"phase"`
	PendingUsername string       `json:"pending_username,omitempty"`
	Username        string       `json:"username,omitempty"`
	LoginTimestamp  *time.Time   `json:"login_timestamp,omitempty"`
}

// HandleSession handles GET /v1/session.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCtx(r.Context())
	if sess == nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "No session on request.")
		return
	}

	sess.Lock()
	resp := sessionResponse{Phase: sess.State.Phase}
	switch sess.State.Phase {
	case domain.PhasePendingSecondFactor:
		resp.PendingUsername = sess.State.PendingUsername
	case domain.PhaseAuthenticated:
		resp.Username = sess.State.AuthenticatedUsername
		ts := sess.State.LoginTimestamp
		resp.LoginTimestamp = &ts
	}
	sess.Unlock()

	httpx.WriteJSON(w, http.StatusOK, resp)
}
