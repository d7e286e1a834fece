package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/univio-api/internal/application/profile"
	"github.com/univio-api/internal/application/registration"
	"github.com/univio-api/internal/domain"
	jwtinfra "github.com/univio-api/internal/infrastructure/jwt"
	"github.com/univio-api/internal/transport/http/middleware"
)

// --- mocks ---

type mockRegistrationSvc struct{ mock.Mock }

func (m *mockRegistrationSvc) Register(ctx context.Context, req domain.RegistrationRequest) (*domain.ProvisioningReport, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*domain.ProvisioningReport); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRegistrationSvc) Repair(ctx context.Context, addr string, opts registration.RepairOptions) (*domain.ProvisioningReport, error) {
	args := m.Called(ctx, addr, opts)
	if r, _ := args.Get(0).(*domain.ProvisioningReport); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) Login(ctx context.Context, req domain.LoginRequest) (*domain.Session, error) {
	args := m.Called(ctx, req)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProfileSvc struct{ mock.Mock }

func (m *mockProfileSvc) Get(ctx context.Context, userID string) (*profile.View, error) {
	args := m.Called(ctx, userID)
	if v, _ := args.Get(0).(*profile.View); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProfileSvc) UpdateAcademic(ctx context.Context, userID string, req domain.UpdateAcademicProfileRequest) (*domain.AcademicProfile, error) {
	args := m.Called(ctx, userID, req)
	if p, _ := args.Get(0).(*domain.AcademicProfile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockCatalogSvc struct{ mock.Mock }

func (m *mockCatalogSvc) SearchInstitutions(ctx context.Context, q string, limit int) ([]domain.Institution, error) {
	args := m.Called(ctx, q, limit)
	v, _ := args.Get(0).([]domain.Institution)
	return v, args.Error(1)
}
func (m *mockCatalogSvc) SearchMajors(ctx context.Context, q string, limit int) ([]domain.Major, error) {
	args := m.Called(ctx, q, limit)
	v, _ := args.Get(0).([]domain.Major)
	return v, args.Error(1)
}
func (m *mockCatalogSvc) CoursesByInstitution(ctx context.Context, institution string) ([]domain.InstitutionCourses, error) {
	args := m.Called(ctx, institution)
	v, _ := args.Get(0).([]domain.InstitutionCourses)
	return v, args.Error(1)
}
func (m *mockCatalogSvc) ResolveIDs(ctx context.Context, p *domain.AcademicProfile) {
	m.Called(ctx, p)
}

func registrationBody() map[string]interface{} {
	return map[string]interface{}{
		"email":                        "ana@gmail.com",
		"password":                     "hunter22!",
		"first_name":                   "Ana",
		"last_name":                    "Reyes",
		"institutional_email":          "ana@smc.edu",
		"institutional_email_verified": true,
		"current_institution":          "Santa Monica College",
		"current_major":                "Biology",
	}
}

func withClaims(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.WithClaims(r.Context(), &jwtinfra.Claims{UserID: userID}))
}

// --- registration ---

func TestRegister_CreatedWithSteps(t *testing.T) {
	svc := &mockRegistrationSvc{}
	svc.On("Register", mock.Anything, mock.MatchedBy(func(r domain.RegistrationRequest) bool {
		return r.Email == "ana@gmail.com" && r.InstitutionalEmailVerified && !r.PersonalEmailVerified
	})).Return(&domain.ProvisioningReport{
		IdentityID: "id-1",
		Steps: []domain.StepResult{
			{Step: domain.StepCreateIdentity, Status: domain.StepDone, Created: true},
			{Step: domain.StepAcademicProfile, Status: domain.StepFailed, Error: "throttled"},
		},
	}, nil)

	rr := postJSON(t, NewRegistrationHandler(svc).Register, registrationBody())

	assert.Equal(t, http.StatusCreated, rr.Code)
	env := decodeResult(t, rr)
	assert.True(t, env.OK)
	assert.Equal(t, "id-1", env.IdentityID)
	require.Len(t, env.Steps, 2)
	assert.Equal(t, domain.StepFailed, env.Steps[1].Status)
}

func TestRegister_Conflict(t *testing.T) {
	svc := &mockRegistrationSvc{}
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)

	rr := postJSON(t, NewRegistrationHandler(svc).Register, registrationBody())

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.False(t, decodeResult(t, rr).OK)
}

func TestRegister_ShortPassword(t *testing.T) {
	svc := &mockRegistrationSvc{}
	body := registrationBody()
	body["password"] = "short"

	rr := postJSON(t, NewRegistrationHandler(svc).Register, body)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeResult(t, rr).Error, "password")
}

func TestRegister_InternalErrorHidesCause(t *testing.T) {
	svc := &mockRegistrationSvc{}
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, errors.New("ResourceNotFoundException: identities"))

	rr := postJSON(t, NewRegistrationHandler(svc).Register, registrationBody())

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "ResourceNotFound")
}

func TestRepair(t *testing.T) {
	svc := &mockRegistrationSvc{}
	report := &domain.ProvisioningReport{IdentityID: "id-1"}
	report.Add(domain.StepResult{Step: domain.StepMirrorUser, Status: domain.StepDone, Created: true})
	svc.On("Repair", mock.Anything, "ana@gmail.com", registration.RepairOptions{}).Return(report, nil)
	svc.On("Repair", mock.Anything, "ghost@gmail.com", registration.RepairOptions{}).Return(nil, domain.ErrNotFound)
	h := NewRegistrationHandler(svc)

	rr := postJSON(t, h.Repair, map[string]string{"email": "ana@gmail.com"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "id-1")
	res := decodeResult(t, rr)
	assert.Empty(t, res.IdentityID)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, domain.StepMirrorUser, res.Steps[0].Step)

	rr = postJSON(t, h.Repair, map[string]string{"email": "ghost@gmail.com"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- sessions ---

func TestLogin(t *testing.T) {
	svc := &mockSessionSvc{}
	svc.On("Login", mock.Anything, domain.LoginRequest{Email: "ana@gmail.com", Password: "hunter22!"}).
		Return(&domain.Session{Bearer: "tok", ExpiresIn: 3600, Identity: &domain.Identity{IdentityID: "id-1", PasswordHash: "secret-hash"}}, nil)
	svc.On("Login", mock.Anything, domain.LoginRequest{Email: "ana@gmail.com", Password: "wrong"}).
		Return(nil, domain.ErrUnauthorized)
	h := NewSessionHandler(svc)

	rr := postJSON(t, h.Login, map[string]string{"email": "ana@gmail.com", "password": "hunter22!"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"Bearer":"tok"`)
	assert.NotContains(t, rr.Body.String(), "secret-hash")

	rr = postJSON(t, h.Login, map[string]string{"email": "ana@gmail.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// --- profile ---

func TestProfileGet(t *testing.T) {
	svc := &mockProfileSvc{}
	svc.On("Get", mock.Anything, "id-1").Return(&profile.View{User: &domain.User{UserID: "id-1"}}, nil)

	req := withClaims(httptest.NewRequest(http.MethodGet, "/", nil), "id-1")
	rr := httptest.NewRecorder()
	NewProfileHandler(svc).Get(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Nil(t, body["academic_profile"])
	assert.Nil(t, body["metrics"])
}

func TestProfileGet_NoClaims(t *testing.T) {
	rr := httptest.NewRecorder()
	NewProfileHandler(&mockProfileSvc{}).Get(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestProfileUpdateAcademic(t *testing.T) {
	svc := &mockProfileSvc{}
	svc.On("UpdateAcademic", mock.Anything, "id-1", domain.UpdateAcademicProfileRequest{
		CurrentInstitution: "Santa Monica College",
		CurrentMajor:       "Biology",
	}).Return(&domain.AcademicProfile{UserID: "id-1"}, nil)

	b, _ := json.Marshal(map[string]string{"current_institution": "Santa Monica College", "current_major": "Biology"})
	req := withClaims(httptest.NewRequest(http.MethodPut, "/", bytes.NewReader(b)), "id-1")
	rr := httptest.NewRecorder()
	NewProfileHandler(svc).UpdateAcademic(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

// --- catalog ---

func TestCatalogInstitutions(t *testing.T) {
	svc := &mockCatalogSvc{}
	svc.On("SearchInstitutions", mock.Anything, "santa", 5).Return([]domain.Institution{{ID: 7, Name: "Santa Monica College"}}, nil)

	rr := httptest.NewRecorder()
	NewCatalogHandler(svc).Institutions(rr, httptest.NewRequest(http.MethodGet, "/?q=santa&limit=5", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Santa Monica College")
}

func TestCatalogMajors_BadLimitUsesDefault(t *testing.T) {
	svc := &mockCatalogSvc{}
	svc.On("SearchMajors", mock.Anything, "bio", 0).Return([]domain.Major{}, nil)

	rr := httptest.NewRecorder()
	NewCatalogHandler(svc).Majors(rr, httptest.NewRequest(http.MethodGet, "/?q=bio&limit=lots", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[]}`, rr.Body.String())
}

func TestCatalogCourses(t *testing.T) {
	svc := &mockCatalogSvc{}
	svc.On("CoursesByInstitution", mock.Anything, "Santa Monica").Return([]domain.InstitutionCourses{{
		Institution: domain.Institution{ID: 1, Name: "Santa Monica College", ShortName: "SMC"},
		Courses:     []domain.Course{{ID: 3, Code: "CS 3", Name: "Introduction to Computer Systems", Units: 3, Transferable: true}},
	}}, nil)

	rr := httptest.NewRecorder()
	NewCatalogHandler(svc).Courses(rr, httptest.NewRequest(http.MethodGet, "/?institution=Santa+Monica", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var env struct {
		Data []domain.InstitutionCourses `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "CS 3", env.Data[0].Courses[0].Code)
}

func TestCatalogCourses_StoreDown(t *testing.T) {
	svc := &mockCatalogSvc{}
	svc.On("CoursesByInstitution", mock.Anything, "").Return(nil, fmt.Errorf("catalog: %w", domain.ErrUnavailable))

	rr := httptest.NewRecorder()
	NewCatalogHandler(svc).Courses(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// --- health ---

func serveHealth(h *HealthHandler, action string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/health-check/{action}", h.Ping)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health-check/"+action, nil))
	return rr
}

func TestHealth(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("refused") }

	rr := serveHealth(NewHealthHandler(nil), "ping")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())

	rr = serveHealth(NewHealthHandler(map[string]Checker{"redis": up}), "ready")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serveHealth(NewHealthHandler(map[string]Checker{"redis": up, "postgres": down}), "ready")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"redis":"up","postgres":"down"}`, rr.Body.String())

	rr = serveHealth(NewHealthHandler(nil), "explode")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
