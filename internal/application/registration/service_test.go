package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/univio-api/internal/domain"
	"github.com/univio-api/internal/notify"
)

// --- fakes ---

// records is an in-memory Record Store and Identity Service.
type records struct {
	mu         sync.Mutex
	identities map[string]*domain.Identity
	users      map[string]*domain.User
	profiles   map[string]*domain.AcademicProfile
	dashboards map[string]*domain.DashboardMetrics
	activity   []domain.ActivityLogEntry

	failProfiles bool
	afterCreate  func()
}

func newRecords() *records {
	return &records{
		identities: map[string]*domain.Identity{},
		users:      map[string]*domain.User{},
		profiles:   map[string]*domain.AcademicProfile{},
		dashboards: map[string]*domain.DashboardMetrics{},
	}
}

func (r *records) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users) + len(r.profiles) + len(r.dashboards)
}

type fakeIdentities struct{ *records }

func (f fakeIdentities) Create(_ context.Context, addr, _ string, meta domain.IdentityMetadata) (*domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.identities[addr]; ok {
		return nil, fmt.Errorf("identity with email %s already exists: %w", addr, domain.ErrConflict)
	}
	ident := &domain.Identity{IdentityID: fmt.Sprintf("id-%d", len(f.identities)+1), Email: addr, Metadata: meta}
	f.identities[addr] = ident
	if f.afterCreate != nil {
		f.afterCreate()
	}
	return ident, nil
}

func (f fakeIdentities) FindByEmail(_ context.Context, addr string) (*domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ident, ok := f.identities[addr]
	if !ok {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	c := *ident
	return &c, nil
}

func (f fakeIdentities) ConfirmEmail(_ context.Context, identityID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ident := range f.identities {
		if ident.IdentityID == identityID {
			ident.EmailConfirmed = true
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeUsers struct{ *records }

func (f fakeUsers) CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.UserID]; ok {
		return false, nil
	}
	f.users[u.UserID] = u
	return true, nil
}

type fakeProfiles struct{ *records }

func (f fakeProfiles) CreateIfAbsent(_ context.Context, p *domain.AcademicProfile) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failProfiles {
		return false, errors.New("academic_profiles unavailable")
	}
	if _, ok := f.profiles[p.UserID]; ok {
		return false, nil
	}
	f.profiles[p.UserID] = p
	return true, nil
}

func (f fakeProfiles) Upsert(_ context.Context, p *domain.AcademicProfile) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failProfiles {
		return false, errors.New("academic_profiles unavailable")
	}
	_, existed := f.profiles[p.UserID]
	f.profiles[p.UserID] = p
	return !existed, nil
}

type fakeDashboards struct{ *records }

func (f fakeDashboards) Ensure(_ context.Context, m *domain.DashboardMetrics) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.dashboards[m.UserID]; ok {
		return false, nil
	}
	f.dashboards[m.UserID] = m
	return true, nil
}

type fakeActivity struct{ *records }

func (f fakeActivity) Append(ctx context.Context, e *domain.ActivityLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activity = append(f.activity, *e)
	return nil
}

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) IsVerified(ctx context.Context, addr string, role domain.Role) (bool, error) {
	args := m.Called(ctx, addr, role)
	return args.Bool(0), args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Send(ctx context.Context, templateID, to string, data notify.TemplateData) error {
	return m.Called(ctx, templateID, to, data).Error(0)
}

type stubCatalog struct{}

func (stubCatalog) ResolveIDs(_ context.Context, p *domain.AcademicProfile) {
	if p.CurrentInstitutionName == "Santa Monica College" {
		id := int64(7)
		p.CurrentInstitutionID = &id
	}
}

// --- builder ---

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newService(r *records, v *mockVerifier, n *mockNotifier) Service {
	return NewService(ServiceDeps{
		Identities: fakeIdentities{r},
		Users:      fakeUsers{r},
		Profiles:   fakeProfiles{r},
		Dashboards: fakeDashboards{r},
		Activity:   fakeActivity{r},
		Verifier:   v,
		Catalog:    stubCatalog{},
		Notifier:   n,
		Now:        func() time.Time { return fixedNow },
	})
}

func registration() domain.RegistrationRequest {
	gpa := 3.6
	year := 2027
	return domain.RegistrationRequest{
		Email:                   "Ana@Gmail.com",
		Password:                "hunter22!",
		FirstName:               "Ana",
		LastName:                "Reyes",
		InstitutionalEmail:      "ana@smc.edu",
		CurrentInstitution:      "Santa Monica College",
		CurrentMajor:            "Biology",
		TargetInstitution:       "UCLA",
		TargetMajor:             "Molecular Biology",
		CurrentGPA:              &gpa,
		ExpectedTransferYear:    &year,
		ExpectedTransferQuarter: "Fall",
	}
}

func status(t *testing.T, report *domain.ProvisioningReport, step string) domain.StepStatus {
	t.Helper()
	res, ok := report.Step(step)
	require.True(t, ok, "missing step %s", step)
	return res.Status
}

// --- Register ---

func TestRegister_InstitutionalOnlySendsWelcome(t *testing.T) {
	r := newRecords()
	v := &mockVerifier{}
	v.On("IsVerified", mock.Anything, "ana@smc.edu", domain.RoleInstitutional).Return(true, nil)
	n := &mockNotifier{}
	n.On("Send", mock.Anything, domain.TemplateWelcome, "ana@gmail.com", mock.Anything).Return(nil)

	req := registration()
	req.InstitutionalEmailVerified = true
	report, err := newService(r, v, n).Register(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "id-1", report.IdentityID)
	assert.Empty(t, report.Failed())
	assert.Equal(t, domain.StepDone, status(t, report, domain.StepAcademicProfile))

	p := r.profiles["id-1"]
	require.NotNil(t, p)
	require.NotNil(t, p.CurrentInstitutionID)
	assert.Equal(t, int64(7), *p.CurrentInstitutionID)
	assert.True(t, p.IsComplete)
	assert.Equal(t, domain.DefaultRemainingUnits, r.dashboards["id-1"].RemainingUnits)
	assert.True(t, r.users["id-1"].InstitutionalEmailVerified)
	assert.NotNil(t, r.users["id-1"].InstitutionalEmailVerifiedAt)
	require.Len(t, r.activity, 1)
	assert.Equal(t, domain.ActivityRegistration, r.activity[0].ActivityType)

	n.AssertExpectations(t)
	n.AssertNotCalled(t, "Send", mock.Anything, domain.TemplateDualVerificationComplete, mock.Anything, mock.Anything)
}

func TestRegister_DualVerifiedSendsCompletionMail(t *testing.T) {
	r := newRecords()
	v := &mockVerifier{}
	v.On("IsVerified", mock.Anything, "ana@smc.edu", domain.RoleInstitutional).Return(true, nil)
	v.On("IsVerified", mock.Anything, "ana@gmail.com", domain.RolePersonal).Return(true, nil)
	n := &mockNotifier{}
	n.On("Send", mock.Anything, domain.TemplateDualVerificationComplete, "ana@gmail.com", notify.TemplateData{
		FirstName:          "Ana",
		InstitutionalEmail: "ana@smc.edu",
	}).Return(nil)

	req := registration()
	req.InstitutionalEmailVerified = true
	req.PersonalEmailVerified = true
	_, err := newService(r, v, n).Register(context.Background(), req)

	require.NoError(t, err)
	n.AssertExpectations(t)
	assert.True(t, r.identities["ana@gmail.com"].Metadata.DualVerified())
}

func TestRegister_UnprovenClaimIsDowngraded(t *testing.T) {
	r := newRecords()
	v := &mockVerifier{}
	v.On("IsVerified", mock.Anything, "ana@smc.edu", domain.RoleInstitutional).Return(false, nil)
	v.On("IsVerified", mock.Anything, "ana@gmail.com", domain.RolePersonal).Return(false, errors.New("redis down"))
	n := &mockNotifier{}
	n.On("Send", mock.Anything, domain.TemplateWelcome, mock.Anything, mock.Anything).Return(nil)

	req := registration()
	req.InstitutionalEmailVerified = true
	req.PersonalEmailVerified = true
	report, err := newService(r, v, n).Register(context.Background(), req)

	require.NoError(t, err)
	assert.NotEmpty(t, report.IdentityID)
	meta := r.identities["ana@gmail.com"].Metadata
	assert.False(t, meta.InstitutionalEmailVerified)
	assert.False(t, meta.PersonalEmailVerified)
	n.AssertExpectations(t)
}

func TestRegister_NoClaimsSkipsVerifier(t *testing.T) {
	r := newRecords()
	v := &mockVerifier{}
	n := &mockNotifier{}
	n.On("Send", mock.Anything, domain.TemplateWelcome, mock.Anything, mock.Anything).Return(nil)

	req := registration()
	req.CurrentMajor = ""
	report, err := newService(r, v, n).Register(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, domain.StepSkipped, status(t, report, domain.StepAcademicProfile))
	assert.Empty(t, r.profiles)
	v.AssertNotCalled(t, "IsVerified", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	r := newRecords()
	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newService(r, &mockVerifier{}, n)

	_, err := svc.Register(context.Background(), registration())
	require.NoError(t, err)

	report, err := svc.Register(context.Background(), registration())
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Nil(t, report)
	assert.Len(t, r.users, 1)
}

func TestRegister_SoftFailuresDoNotFail(t *testing.T) {
	r := newRecords()
	r.failProfiles = true
	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("smtp: %w", domain.ErrUnavailable))
	svc := newService(r, &mockVerifier{}, n)
	ctx := context.Background()

	report, err := svc.Register(ctx, registration())

	require.NoError(t, err)
	assert.Equal(t, "id-1", report.IdentityID)
	assert.ElementsMatch(t, []string{domain.StepAcademicProfile, domain.StepNotify}, report.Failed())
	assert.Equal(t, domain.StepDone, status(t, report, domain.StepDashboardMetrics))
	assert.Empty(t, r.profiles)

	// The profile store recovers; repair fills the gap.
	r.failProfiles = false
	report, err = svc.Repair(ctx, "ana@gmail.com", RepairOptions{})
	require.NoError(t, err)
	res, _ := report.Step(domain.StepAcademicProfile)
	assert.Equal(t, domain.StepDone, res.Status)
	assert.True(t, res.Created)
	assert.NotNil(t, r.profiles["id-1"])
}

func TestRegister_ClientDisconnectAfterIdentityCreate(t *testing.T) {
	r := newRecords()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.afterCreate = cancel
	n := &mockNotifier{}
	n.On("Send", mock.Anything, domain.TemplateWelcome, "ana@gmail.com", mock.Anything).Return(nil)

	report, err := newService(r, &mockVerifier{}, n).Register(ctx, registration())

	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Equal(t, domain.StepDone, status(t, report, domain.StepMirrorUser))
	assert.Equal(t, domain.StepDone, status(t, report, domain.StepActivityLog))
	assert.Empty(t, report.Failed())
	assert.NotNil(t, r.users["id-1"])
	n.AssertExpectations(t)
}

// --- Repair ---

func TestRepair_IsIdempotent(t *testing.T) {
	r := newRecords()
	_, err := fakeIdentities{r}.Create(context.Background(), "ana@gmail.com", "", registration().Metadata())
	require.NoError(t, err)
	svc := newService(r, &mockVerifier{}, &mockNotifier{})
	ctx := context.Background()
	opts := RepairOptions{ConfirmEmail: true}

	first, err := svc.Repair(ctx, "ana@gmail.com", opts)
	require.NoError(t, err)
	once := r.count()
	assert.Equal(t, 3, once)
	for _, step := range []string{domain.StepMirrorUser, domain.StepAcademicProfile, domain.StepDashboardMetrics, domain.StepConfirmEmail} {
		res, _ := first.Step(step)
		assert.True(t, res.Created, step)
	}
	assert.True(t, r.identities["ana@gmail.com"].EmailConfirmed)
	require.Len(t, r.activity, 1)
	assert.Equal(t, domain.ActivityAccountRepair, r.activity[0].ActivityType)
	assert.Equal(t, "created", r.activity[0].Metadata[domain.StepMirrorUser])

	second, err := svc.Repair(ctx, "ana@gmail.com", opts)
	require.NoError(t, err)
	assert.Equal(t, once, r.count())
	for _, step := range []string{domain.StepMirrorUser, domain.StepAcademicProfile, domain.StepDashboardMetrics, domain.StepConfirmEmail} {
		res, _ := second.Step(step)
		assert.Equal(t, domain.StepDone, res.Status, step)
		assert.False(t, res.Created, step)
	}

	// Nothing was created, so no new audit entry.
	assert.Equal(t, domain.StepSkipped, status(t, second, domain.StepActivityLog))
	assert.Len(t, r.activity, 1)
}

func TestRepair_DoesNotConfirmEmailUnlessAsked(t *testing.T) {
	r := newRecords()
	_, err := fakeIdentities{r}.Create(context.Background(), "ana@gmail.com", "", registration().Metadata())
	require.NoError(t, err)
	svc := newService(r, &mockVerifier{}, &mockNotifier{})

	report, err := svc.Repair(context.Background(), "Ana@Gmail.com", RepairOptions{})

	require.NoError(t, err)
	assert.Equal(t, domain.StepSkipped, status(t, report, domain.StepConfirmEmail))
	assert.False(t, r.identities["ana@gmail.com"].EmailConfirmed)
	assert.Equal(t, domain.StepDone, status(t, report, domain.StepMirrorUser))
}

func TestRepair_SurvivesCallerCancellation(t *testing.T) {
	r := newRecords()
	_, err := fakeIdentities{r}.Create(context.Background(), "ana@gmail.com", "", registration().Metadata())
	require.NoError(t, err)
	svc := newService(r, &mockVerifier{}, &mockNotifier{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// FindByEmail ignores ctx in the fake; the record writes must not.
	report, err := svc.Repair(ctx, "ana@gmail.com", RepairOptions{})

	require.NoError(t, err)
	assert.Empty(t, report.Failed())
	assert.NotNil(t, r.users["id-1"])
}

func TestRepair_UnknownEmail(t *testing.T) {
	svc := newService(newRecords(), &mockVerifier{}, &mockNotifier{})

	_, err := svc.Repair(context.Background(), "ghost@gmail.com", RepairOptions{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
