package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/univio-api/internal/application/recovery"
	"github.com/univio-api/internal/domain"
)

// PasswordRecoveryHandler handles the password reset flow.
type PasswordRecoveryHandler struct {
	svc recovery.Service
}

func NewPasswordRecoveryHandler(svc recovery.Service) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{svc: svc}
}

func (h *PasswordRecoveryHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "request":
		var req domain.PasswordResetRequest
		if !decodeOrFail(w, r, &req) {
			return
		}
		if err := h.svc.RequestReset(r.Context(), req.Email); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: recovery.RequestedMessage})
	case "reset":
		var req domain.PasswordResetConfirmRequest
		if !decodeOrFail(w, r, &req) {
			return
		}
		res, err := h.svc.Reset(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeVerifyOutcome(w, res, "reset code")
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
