// Package registration provisions a new account across the Identity Service
// and the Record Store, and repairs accounts whose records are incomplete.
//
// Only identity creation is mandatory. Every later step is soft: a failure is
// logged and reported but does not fail the registration, and every step is
// create-if-absent so that Repair can re-run it.
package registration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/univio-api/internal/domain"
	"github.com/univio-api/internal/metrics"
	"github.com/univio-api/internal/notify"
	"github.com/univio-api/internal/pkg/email"
	"github.com/univio-api/internal/pkg/id"
)

// provisionTimeout bounds the soft steps, which run detached from the caller's
// cancellation once the identity exists.
const provisionTimeout = 30 * time.Second

type Service interface {
	Register(ctx context.Context, req domain.RegistrationRequest) (*domain.ProvisioningReport, error)
	Repair(ctx context.Context, addr string, opts RepairOptions) (*domain.ProvisioningReport, error)
}

// RepairOptions selects the privileged parts of a repair.
type RepairOptions struct {
	// ConfirmEmail marks the identity's email as confirmed. Only operator
	// tooling sets it.
	ConfirmEmail bool
}

type identityService interface {
	Create(ctx context.Context, addr, password string, meta domain.IdentityMetadata) (*domain.Identity, error)
	FindByEmail(ctx context.Context, addr string) (*domain.Identity, error)
	ConfirmEmail(ctx context.Context, identityID string) error
}

type userStore interface {
	CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error)
}

type profileStore interface {
	CreateIfAbsent(ctx context.Context, p *domain.AcademicProfile) (bool, error)
	Upsert(ctx context.Context, p *domain.AcademicProfile) (bool, error)
}

type dashboardStore interface {
	Ensure(ctx context.Context, m *domain.DashboardMetrics) (bool, error)
}

type activityStore interface {
	Append(ctx context.Context, e *domain.ActivityLogEntry) error
}

type verifier interface {
	IsVerified(ctx context.Context, addr string, role domain.Role) (bool, error)
}

type catalogResolver interface {
	ResolveIDs(ctx context.Context, p *domain.AcademicProfile)
}

type ServiceDeps struct {
	Identities identityService
	Users      userStore
	Profiles   profileStore
	Dashboards dashboardStore
	Activity   activityStore
	Verifier   verifier
	Catalog    catalogResolver // optional
	Notifier   notify.Notifier
	Metrics    *metrics.Collector
	Now        func() time.Time
}

type service struct {
	identities identityService
	users      userStore
	profiles   profileStore
	dashboards dashboardStore
	activity   activityStore
	verifier   verifier
	catalog    catalogResolver
	notifier   notify.Notifier
	metrics    *metrics.Collector
	now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		identities: deps.Identities,
		users:      deps.Users,
		profiles:   deps.Profiles,
		dashboards: deps.Dashboards,
		activity:   deps.Activity,
		verifier:   deps.Verifier,
		catalog:    deps.Catalog,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		now:        deps.Now,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *service) Register(ctx context.Context, req domain.RegistrationRequest) (*domain.ProvisioningReport, error) {
	req.Email = email.Normalize(req.Email)
	req.InstitutionalEmail = email.Normalize(req.InstitutionalEmail)
	req.InstitutionalEmailVerified = s.confirmClaim(ctx, req.InstitutionalEmailVerified, req.InstitutionalEmail, domain.RoleInstitutional)
	req.PersonalEmailVerified = s.confirmClaim(ctx, req.PersonalEmailVerified, req.Email, domain.RolePersonal)

	ident, err := s.identities.Create(ctx, req.Email, req.Password, req.Metadata())
	if err != nil {
		s.metrics.ProvisioningStep(domain.StepCreateIdentity, string(domain.StepFailed))
		return nil, fmt.Errorf("create identity: %w", err)
	}
	report := &domain.ProvisioningReport{IdentityID: ident.IdentityID}
	s.record(report, domain.StepResult{Step: domain.StepCreateIdentity, Status: domain.StepDone, Created: true})

	// The identity exists now; a client hanging up must not leave its
	// records half-written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), provisionTimeout)
	defer cancel()

	now := s.now()
	s.soft(report, domain.StepMirrorUser, func() (bool, error) {
		return s.users.CreateIfAbsent(ctx, domain.NewUserFromIdentity(ident, now))
	})
	s.provisionProfile(ctx, report, ident, now, s.profiles.Upsert)
	s.soft(report, domain.StepDashboardMetrics, func() (bool, error) {
		return s.dashboards.Ensure(ctx, domain.NewDashboardMetrics(ident.IdentityID, ident.Metadata.CurrentGPA, now))
	})
	s.soft(report, domain.StepActivityLog, func() (bool, error) {
		return true, s.activity.Append(ctx, &domain.ActivityLogEntry{
			ActivityID:   id.NewAt(now),
			UserID:       ident.IdentityID,
			ActivityType: domain.ActivityRegistration,
			Category:     "account",
			Description:  "Account created",
			Metadata: map[string]string{
				"institutional_email_verified": strconv.FormatBool(ident.Metadata.InstitutionalEmailVerified),
				"personal_email_verified":      strconv.FormatBool(ident.Metadata.PersonalEmailVerified),
			},
			Success:   true,
			CreatedAt: now,
		})
	})
	s.soft(report, domain.StepNotify, func() (bool, error) {
		template := domain.TemplateWelcome
		if ident.Metadata.DualVerified() {
			template = domain.TemplateDualVerificationComplete
		}
		return true, s.notifier.Send(ctx, template, ident.Email, notify.TemplateData{
			FirstName:          ident.Metadata.FirstName,
			InstitutionalEmail: ident.Metadata.InstitutionalEmail,
		})
	})

	slog.Info("account provisioned", "identity_id", ident.IdentityID, "failed_steps", report.Failed())
	return report, nil
}

// Repair rebuilds the Record Store rows of an existing identity from the
// metadata stored on it. Running it again changes nothing, and the
// account_repair activity is only logged when a record was actually created.
func (s *service) Repair(ctx context.Context, addr string, opts RepairOptions) (*domain.ProvisioningReport, error) {
	ident, err := s.identities.FindByEmail(ctx, email.Normalize(addr))
	if err != nil {
		return nil, err
	}
	report := &domain.ProvisioningReport{IdentityID: ident.IdentityID}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), provisionTimeout)
	defer cancel()

	now := s.now()
	s.soft(report, domain.StepMirrorUser, func() (bool, error) {
		return s.users.CreateIfAbsent(ctx, domain.NewUserFromIdentity(ident, now))
	})
	s.provisionProfile(ctx, report, ident, now, s.profiles.CreateIfAbsent)
	s.soft(report, domain.StepDashboardMetrics, func() (bool, error) {
		return s.dashboards.Ensure(ctx, domain.NewDashboardMetrics(ident.IdentityID, ident.Metadata.CurrentGPA, now))
	})
	if opts.ConfirmEmail {
		s.soft(report, domain.StepConfirmEmail, func() (bool, error) {
			if ident.EmailConfirmed {
				return false, nil
			}
			return true, s.identities.ConfirmEmail(ctx, ident.IdentityID)
		})
	} else {
		s.record(report, domain.StepResult{Step: domain.StepConfirmEmail, Status: domain.StepSkipped})
	}

	if !anyCreated(report) {
		s.record(report, domain.StepResult{Step: domain.StepActivityLog, Status: domain.StepSkipped})
	} else {
		s.soft(report, domain.StepActivityLog, func() (bool, error) {
			return true, s.activity.Append(ctx, &domain.ActivityLogEntry{
				ActivityID:   id.NewAt(now),
				UserID:       ident.IdentityID,
				ActivityType: domain.ActivityAccountRepair,
				Category:     "account",
				Description:  "Account records repaired",
				Metadata:     createdSteps(report),
				Success:      len(report.Failed()) == 0,
				CreatedAt:    now,
			})
		})
	}

	slog.Info("account repaired", "identity_id", ident.IdentityID, "failed_steps", report.Failed())
	return report, nil
}

func (s *service) provisionProfile(ctx context.Context, report *domain.ProvisioningReport, ident *domain.Identity, now time.Time,
	write func(context.Context, *domain.AcademicProfile) (bool, error)) {
	if !ident.Metadata.HasAcademicInfo() {
		s.record(report, domain.StepResult{Step: domain.StepAcademicProfile, Status: domain.StepSkipped})
		return
	}
	s.soft(report, domain.StepAcademicProfile, func() (bool, error) {
		p := domain.NewAcademicProfile(ident.IdentityID, ident.Metadata, now)
		if s.catalog != nil {
			s.catalog.ResolveIDs(ctx, p)
		}
		return write(ctx, p)
	})
}

// confirmClaim keeps a client-asserted verification flag only when the
// challenge store holds a fresh marker for that address and role.
func (s *service) confirmClaim(ctx context.Context, claimed bool, addr string, role domain.Role) bool {
	if !claimed {
		return false
	}
	ok, err := s.verifier.IsVerified(ctx, addr, role)
	if err != nil {
		slog.Warn("could not check verification marker, storing flag as false", "role", role, "err", err)
		return false
	}
	if !ok {
		slog.Warn("verification claim not backed by a verified code, storing flag as false", "role", role, "email_domain", email.Domain(addr))
	}
	return ok
}

func (s *service) soft(report *domain.ProvisioningReport, step string, fn func() (bool, error)) {
	created, err := fn()
	res := domain.StepResult{Step: step, Status: domain.StepDone, Created: created}
	if err != nil {
		res = domain.StepResult{Step: step, Status: domain.StepFailed, Error: err.Error()}
		slog.Warn("provisioning step failed", "step", step, "identity_id", report.IdentityID, "err", err)
	}
	s.record(report, res)
}

func (s *service) record(report *domain.ProvisioningReport, res domain.StepResult) {
	report.Add(res)
	s.metrics.ProvisioningStep(res.Step, string(res.Status))
}

func anyCreated(report *domain.ProvisioningReport) bool {
	for _, st := range report.Steps {
		if st.Created {
			return true
		}
	}
	return false
}

func createdSteps(report *domain.ProvisioningReport) map[string]string {
	m := make(map[string]string, len(report.Steps))
	for _, st := range report.Steps {
		switch {
		case st.Status == domain.StepFailed:
			m[st.Step] = "failed"
		case st.Created:
			m[st.Step] = "created"
		case st.Status == domain.StepSkipped:
			m[st.Step] = "skipped"
		default:
			m[st.Step] = "already_present"
		}
	}
	return m
}
