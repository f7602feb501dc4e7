package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/passgate/passgate/internal/passgate/service"
	"github.com/passgate/passgate/pkg/httpx"
	"github.com/passgate/passgate/pkg/slogx"
)

// LoginHandler handles the first authentication factor.
type LoginHandler struct {
	AuthService *service.AuthService
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

// HandleLogin handles POST /v1/login. A well-formed submission issues a
// passcode, delivers it out-of-band, and leaves the session pending the
// second factor.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	sess := sessionFromCtx(ctx)
	if sess == nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "No session on request.")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body.")
		return
	}

	if err := h.AuthService.SubmitCredentials(ctx, sess, req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			httpx.WriteError(w, http.StatusBadRequest, "validation_failed",
				"Username must be under 20 characters and password exactly 4 digits.")
		case errors.Is(err, service.ErrDelivery):
			httpx.WriteError(w, http.StatusBadGateway, "delivery_failed",
				"Could not deliver the verification code. Try again.")
		default:
			log.Error("credential submission failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error.")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, loginResponse{
		Phase:   string(h.AuthService.Phase(sess)),
		Message: "A verification code has been sent. Submit it within one minute.",
	})
}
