package catalog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/univio-api/internal/domain"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

type Service interface {
	SearchInstitutions(ctx context.Context, q string, limit int) ([]domain.Institution, error)
	SearchMajors(ctx context.Context, q string, limit int) ([]domain.Major, error)
	CoursesByInstitution(ctx context.Context, institution string) ([]domain.InstitutionCourses, error)
	// ResolveIDs fills the catalog ids of p from its names. Lookups are best
	// effort: unknown names and lookup errors leave the id nil.
	ResolveIDs(ctx context.Context, p *domain.AcademicProfile)
}

type catalogStore interface {
	SearchInstitutions(ctx context.Context, q string, limit int) ([]domain.Institution, error)
	SearchMajors(ctx context.Context, q string, limit int) ([]domain.Major, error)
	FindInstitution(ctx context.Context, name string) (*domain.Institution, error)
	FindMajor(ctx context.Context, name string) (*domain.Major, error)
	CoursesByInstitution(ctx context.Context, institution string) ([]domain.InstitutionCourses, error)
}

type service struct {
	repo catalogStore
}

func NewService(repo catalogStore) Service {
	return &service{repo: repo}
}

func (s *service) SearchInstitutions(ctx context.Context, q string, limit int) ([]domain.Institution, error) {
	out, err := s.repo.SearchInstitutions(ctx, q, clamp(limit))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Institution{}
	}
	return out, nil
}

func (s *service) SearchMajors(ctx context.Context, q string, limit int) ([]domain.Major, error) {
	out, err := s.repo.SearchMajors(ctx, q, clamp(limit))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Major{}
	}
	return out, nil
}

func (s *service) CoursesByInstitution(ctx context.Context, institution string) ([]domain.InstitutionCourses, error) {
	out, err := s.repo.CoursesByInstitution(ctx, institution)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.InstitutionCourses{}
	}
	return out, nil
}

func (s *service) ResolveIDs(ctx context.Context, p *domain.AcademicProfile) {
	if s.repo == nil {
		return
	}
	p.CurrentInstitutionID = s.institutionID(ctx, p.CurrentInstitutionName)
	p.TargetInstitutionID = s.institutionID(ctx, p.TargetInstitutionName)
	p.CurrentMajorID = s.majorID(ctx, p.CurrentMajorName)
	p.TargetMajorID = s.majorID(ctx, p.TargetMajorName)
}

func (s *service) institutionID(ctx context.Context, name string) *int64 {
	if name == "" {
		return nil
	}
	in, err := s.repo.FindInstitution(ctx, name)
	if err != nil {
		logLookup(err, "institution", name)
		return nil
	}
	return &in.ID
}

func (s *service) majorID(ctx context.Context, name string) *int64 {
	if name == "" {
		return nil
	}
	m, err := s.repo.FindMajor(ctx, name)
	if err != nil {
		logLookup(err, "major", name)
		return nil
	}
	return &m.ID
}

func logLookup(err error, kind, name string) {
	if errors.Is(err, domain.ErrNotFound) {
		slog.Debug("catalog entry not found", "kind", kind, "name", name)
		return
	}
	slog.Warn("catalog lookup failed", "kind", kind, "name", name, "err", err)
}

func clamp(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}
