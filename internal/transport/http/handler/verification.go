package handler

import (
	"net/http"
	"time"

	"github.com/univio-api/internal/application/challenge"
	"github.com/univio-api/internal/domain"
	"github.com/univio-api/internal/pkg/email"
)

// VerificationHandler serves code delivery and checking for both email roles.
type VerificationHandler struct {
	svc challenge.Service
}

func NewVerificationHandler(svc challenge.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

func (h *VerificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendCodeRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	if _, err := h.svc.Send(r.Context(), req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultEnvelope{OK: true, ExpiresIn: int(h.svc.TTL() / time.Second)})
}

func (h *VerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyCodeRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	if err := email.CheckRole(req.Email, req.Role); err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := h.svc.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeVerifyOutcome(w, res, "verification code")
}

// writeVerifyOutcome maps a code check to its status: 200, 404, 410, 429 or
// 400 with the attempts left.
func writeVerifyOutcome(w http.ResponseWriter, res domain.VerifyResult, kind string) {
	switch res.Outcome {
	case domain.OutcomeSuccess:
		writeJSON(w, http.StatusOK, ResultEnvelope{OK: true})
	case domain.OutcomeNotFound:
		writeError(w, http.StatusNotFound, "no "+kind+" found, please request a new one")
	case domain.OutcomeExpired:
		writeError(w, http.StatusGone, kind+" expired, please request a new one")
	case domain.OutcomeTooManyAttempts:
		writeError(w, http.StatusTooManyRequests, "too many failed attempts, please request a new code")
	default:
		remaining := res.AttemptsRemaining
		writeJSON(w, http.StatusBadRequest, ResultEnvelope{
			Error:             "invalid " + kind,
			AttemptsRemaining: &remaining,
		})
	}
}
