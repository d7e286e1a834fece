package handler

import (
	"net/http"

	"github.com/univio-api/internal/application/registration"
	"github.com/univio-api/internal/domain"
)

type RegistrationHandler struct {
	svc registration.Service
}

func NewRegistrationHandler(svc registration.Service) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

// Register answers 201 once the identity exists, whatever happened to the
// later provisioning steps; the steps array says what did.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegistrationRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	report, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ResultEnvelope{OK: true, IdentityID: report.IdentityID, Steps: report.Steps})
}

// Repair re-runs the record steps for an existing account. It never confirms
// the email and never returns the identity id; that is left to the admin CLI.
func (h *RegistrationHandler) Repair(w http.ResponseWriter, r *http.Request) {
	var req domain.RepairRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	report, err := h.svc.Repair(r.Context(), req.Email, registration.RepairOptions{})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultEnvelope{OK: true, Steps: report.Steps})
}
