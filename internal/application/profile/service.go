package profile

import (
	"context"
	"log/slog"
	"time"

	"github.com/univio-api/internal/domain"
	"github.com/univio-api/internal/pkg/id"
)

const recentActivityLimit = 10

// View is everything the dashboard needs for one user. Profile and Metrics
// are nil until provisioned.
type View struct {
	User           *domain.User              `json:"user"`
	Profile        *domain.AcademicProfile   `json:"academic_profile"`
	Metrics        *domain.DashboardMetrics  `json:"metrics"`
	RecentActivity []domain.ActivityLogEntry `json:"recent_activity"`
}

type Service interface {
	Get(ctx context.Context, userID string) (*View, error)
	UpdateAcademic(ctx context.Context, userID string, req domain.UpdateAcademicProfileRequest) (*domain.AcademicProfile, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.AcademicProfile, error)
	Upsert(ctx context.Context, p *domain.AcademicProfile) (bool, error)
}

type dashboardStore interface {
	Get(ctx context.Context, userID string) (*domain.DashboardMetrics, error)
}

type activityStore interface {
	Append(ctx context.Context, e *domain.ActivityLogEntry) error
	ListByUser(ctx context.Context, userID string, limit int32) ([]domain.ActivityLogEntry, error)
}

type catalogResolver interface {
	ResolveIDs(ctx context.Context, p *domain.AcademicProfile)
}

type ServiceDeps struct {
	Users      userStore
	Profiles   profileStore
	Dashboards dashboardStore
	Activity   activityStore
	Catalog    catalogResolver // optional
}

type service struct {
	users      userStore
	profiles   profileStore
	dashboards dashboardStore
	activity   activityStore
	catalog    catalogResolver
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:      deps.Users,
		profiles:   deps.Profiles,
		dashboards: deps.Dashboards,
		activity:   deps.Activity,
		catalog:    deps.Catalog,
	}
}

func (s *service) Get(ctx context.Context, userID string) (*View, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	m, err := s.dashboards.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.activity.ListByUser(ctx, userID, recentActivityLimit)
	if err != nil {
		slog.Warn("failed to load recent activity", "user_id", userID, "err", err)
	}
	if recent == nil {
		recent = []domain.ActivityLogEntry{}
	}
	return &View{User: u, Profile: p, Metrics: m, RecentActivity: recent}, nil
}

// UpdateAcademic replaces the academic fields of the profile, creating it if
// the user has none. Planning preferences are kept unless supplied.
func (s *service) UpdateAcademic(ctx context.Context, userID string, req domain.UpdateAcademicProfileRequest) (*domain.AcademicProfile, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}
	existing, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := domain.NewAcademicProfile(userID, domain.IdentityMetadata{
		CurrentInstitution:      req.CurrentInstitution,
		CurrentMajor:            req.CurrentMajor,
		TargetInstitution:       req.TargetInstitution,
		TargetMajor:             req.TargetMajor,
		CurrentGPA:              req.CurrentGPA,
		ExpectedTransferYear:    req.ExpectedTransferYear,
		ExpectedTransferQuarter: req.ExpectedTransferQuarter,
	}, now)
	if existing != nil {
		p.MaxUnitsPerQuarter = existing.MaxUnitsPerQuarter
		p.PreferredStudyIntensity = existing.PreferredStudyIntensity
	}
	if req.MaxUnitsPerQuarter != nil {
		p.MaxUnitsPerQuarter = *req.MaxUnitsPerQuarter
	}
	if req.PreferredStudyIntensity != "" {
		p.PreferredStudyIntensity = req.PreferredStudyIntensity
	}
	if s.catalog != nil {
		s.catalog.ResolveIDs(ctx, p)
	}

	created, err := s.profiles.Upsert(ctx, p)
	if err != nil {
		return nil, err
	}

	desc := "Academic profile updated"
	if created {
		desc = "Academic profile created"
	}
	if err := s.activity.Append(ctx, &domain.ActivityLogEntry{
		ActivityID:   id.NewAt(now),
		UserID:       userID,
		ActivityType: domain.ActivityProfileUpdate,
		Category:     "profile",
		Description:  desc,
		Metadata:     map[string]string{"current_institution": p.CurrentInstitutionName, "current_major": p.CurrentMajorName},
		Success:      true,
		CreatedAt:    now,
	}); err != nil {
		slog.Warn("failed to log profile activity", "user_id", userID, "err", err)
	}
	return p, nil
}
