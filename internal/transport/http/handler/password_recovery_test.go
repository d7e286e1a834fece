package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/univio-api/internal/application/recovery"
	"github.com/univio-api/internal/domain"
)

type mockRecoverySvc struct{ mock.Mock }

func (m *mockRecoverySvc) RequestReset(ctx context.Context, addr string) error {
	return m.Called(ctx, addr).Error(0)
}

func (m *mockRecoverySvc) Reset(ctx context.Context, req domain.PasswordResetConfirmRequest) (domain.VerifyResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.VerifyResult), args.Error(1)
}

func serveRecovery(t *testing.T, svc recovery.Service, action string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/password-recovery/{action}", NewPasswordRecoveryHandler(svc).Action)
	b, err := json.Marshal(body)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/password-recovery/"+action, bytes.NewReader(b)))
	return rr
}

func TestPasswordRecovery_RequestAlwaysSameMessage(t *testing.T) {
	svc := &mockRecoverySvc{}
	svc.On("RequestReset", mock.Anything, mock.Anything).Return(nil)

	known := serveRecovery(t, svc, "request", map[string]string{"email": "ana@gmail.com"})
	unknown := serveRecovery(t, svc, "request", map[string]string{"email": "ghost@gmail.com"})

	assert.Equal(t, http.StatusOK, known.Code)
	assert.JSONEq(t, `{"message":"If an account with this email exists, you will receive a password reset link shortly."}`, known.Body.String())
	assert.Equal(t, known.Body.String(), unknown.Body.String())
}

func TestPasswordRecovery_RequestValidatesEmail(t *testing.T) {
	svc := &mockRecoverySvc{}

	rr := serveRecovery(t, svc, "request", map[string]string{"email": "not-an-email"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "RequestReset", mock.Anything, mock.Anything)
}

func TestPasswordRecovery_RequestStoreDown(t *testing.T) {
	svc := &mockRecoverySvc{}
	svc.On("RequestReset", mock.Anything, "ana@gmail.com").Return(fmt.Errorf("dynamo: %w", domain.ErrUnavailable))

	rr := serveRecovery(t, svc, "request", map[string]string{"email": "ana@gmail.com"})

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPasswordRecovery_Reset(t *testing.T) {
	good := domain.PasswordResetConfirmRequest{Email: "ana@gmail.com", Code: "314159", Password: "new-password-1"}
	bad := domain.PasswordResetConfirmRequest{Email: "ana@gmail.com", Code: "000000", Password: "new-password-1"}
	svc := &mockRecoverySvc{}
	svc.On("Reset", mock.Anything, good).Return(domain.VerifyResult{Outcome: domain.OutcomeSuccess}, nil)
	svc.On("Reset", mock.Anything, bad).Return(domain.VerifyResult{Outcome: domain.OutcomeMismatch, AttemptsRemaining: 2}, nil)

	rr := serveRecovery(t, svc, "reset", good)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeResult(t, rr).OK)

	rr = serveRecovery(t, svc, "reset", bad)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeResult(t, rr)
	require.NotNil(t, env.AttemptsRemaining)
	assert.Equal(t, 2, *env.AttemptsRemaining)
	assert.Equal(t, "invalid reset code", env.Error)
}

func TestPasswordRecovery_ResetRejectsShortPassword(t *testing.T) {
	svc := &mockRecoverySvc{}

	rr := serveRecovery(t, svc, "reset", map[string]string{"email": "ana@gmail.com", "code": "314159", "password": "short"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything)
}

func TestPasswordRecovery_UnknownAction(t *testing.T) {
	rr := serveRecovery(t, &mockRecoverySvc{}, "validate-code", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
