package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/passgate/passgate/internal/passgate/service"
	"github.com/passgate/passgate/pkg/httpx"
	"github.com/passgate/passgate/pkg/slogx"
)

// VerifyHandler handles the second authentication factor.
type VerifyHandler struct {
	AuthService *service.AuthService
}

type verifyRequest struct {
	Code string `json:"code"`
}

type verifyResponse struct {
	Phase    string `json:"phase"`
	Username string `json:"username,omitempty"`
}

// HandleVerify handles POST /v1/login/verify. The outcome mapping mirrors
// the state machine: valid authenticates, mismatch is retryable, expired or
// unknown attempts clear the pending state and the user starts over.
func (h *VerifyHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sess := sessionFromCtx(ctx)
	if sess == nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "No session on request.")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body.")
		return
	}

	if err := h.AuthService.SubmitCode(ctx, sess, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrNoPendingAttempt):
			httpx.WriteError(w, http.StatusConflict, "no_pending_attempt",
				"No login attempt is awaiting verification.")
		case errors.Is(err, service.ErrValidation):
			httpx.WriteError(w, http.StatusBadRequest, "validation_failed",
				"The code must be exactly 4 digits.")
		case errors.Is(err, service.ErrCodeMismatch):
			httpx.WriteError(w, http.StatusUnauthorized, "code_mismatch",
				"Wrong code. Try again before it expires.")
		case errors.Is(err, service.ErrAttemptExpired):
			httpx.WriteError(w, http.StatusGone, "attempt_expired",
				"The code expired. Restart the login.")
		default:
			log.Error("code submission failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error.")
		}
		return
	}

	sess.Lock()
	resp := verifyResponse{
		Phase:    string(sess.State.Phase),
		Username: sess.State.AuthenticatedUsername,
	}
	sess.Unlock()

	httpx.WriteJSON(w, http.StatusOK, resp)
}
