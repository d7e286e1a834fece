package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/univio-api/internal/domain"
	"github.com/univio-api/internal/pkg/validate"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ResultEnvelope is the {ok, ...} shape of the verification and registration
// endpoints. Optional fields appear only for the outcome that sets them.
type ResultEnvelope struct {
	OK                bool                `json:"ok"`
	Error             string              `json:"error,omitempty"`
	ExpiresIn         int                 `json:"expires_in,omitempty"`
	RetryAfterSeconds int                 `json:"retry_after_seconds,omitempty"`
	AttemptsRemaining *int                `json:"attempts_remaining,omitempty"`
	IdentityID        string              `json:"identity_id,omitempty"`
	Steps             []domain.StepResult `json:"steps,omitempty"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Bearer    string           `json:"Bearer"`
	ExpiresIn int              `json:"expires_in"`
	Identity  *domain.Identity `json:"identity"`
}

// ListEnvelope wraps catalog search results.
type ListEnvelope struct {
	Data interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ResultEnvelope{Error: msg})
}

// writeServiceError maps domain error kinds to HTTP status codes. Boundary
// failures are reported without their cause.
func writeServiceError(w http.ResponseWriter, err error) {
	var rl *domain.RateLimitError
	switch {
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfterSeconds()))
		writeJSON(w, http.StatusTooManyRequests, ResultEnvelope{
			Error:             "too many verification codes requested",
			RetryAfterSeconds: rl.RetryAfterSeconds(),
		})
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "an account with this email already exists")
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable, please try again")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
	}
	return validate.Struct(v)
}

// decodeOrFail writes a 400 and returns false when the body is unusable.
func decodeOrFail(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := decode(r, v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
