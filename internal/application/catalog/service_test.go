package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/univio-api/internal/domain"
)

type mockCatalogStore struct{ mock.Mock }

func (m *mockCatalogStore) SearchInstitutions(ctx context.Context, q string, limit int) ([]domain.Institution, error) {
	args := m.Called(ctx, q, limit)
	v, _ := args.Get(0).([]domain.Institution)
	return v, args.Error(1)
}
func (m *mockCatalogStore) SearchMajors(ctx context.Context, q string, limit int) ([]domain.Major, error) {
	args := m.Called(ctx, q, limit)
	v, _ := args.Get(0).([]domain.Major)
	return v, args.Error(1)
}
func (m *mockCatalogStore) FindInstitution(ctx context.Context, name string) (*domain.Institution, error) {
	args := m.Called(ctx, name)
	if v, _ := args.Get(0).(*domain.Institution); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCatalogStore) FindMajor(ctx context.Context, name string) (*domain.Major, error) {
	args := m.Called(ctx, name)
	if v, _ := args.Get(0).(*domain.Major); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCatalogStore) CoursesByInstitution(ctx context.Context, institution string) ([]domain.InstitutionCourses, error) {
	args := m.Called(ctx, institution)
	v, _ := args.Get(0).([]domain.InstitutionCourses)
	return v, args.Error(1)
}

func TestSearchInstitutions_ClampsLimit(t *testing.T) {
	repo := &mockCatalogStore{}
	repo.On("SearchInstitutions", mock.Anything, "ucla", DefaultLimit).Return(nil, nil)
	repo.On("SearchInstitutions", mock.Anything, "uc", MaxLimit).Return([]domain.Institution{{ID: 1, Name: "UCLA"}}, nil)
	svc := NewService(repo)

	out, err := svc.SearchInstitutions(context.Background(), "ucla", 0)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	out, err = svc.SearchInstitutions(context.Background(), "uc", 500)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	repo.AssertExpectations(t)
}

func TestSearchMajors_PropagatesError(t *testing.T) {
	repo := &mockCatalogStore{}
	repo.On("SearchMajors", mock.Anything, "bio", 10).Return(nil, errors.New("db down"))

	_, err := NewService(repo).SearchMajors(context.Background(), "bio", 10)

	assert.Error(t, err)
}

func TestResolveIDs_BestEffort(t *testing.T) {
	repo := &mockCatalogStore{}
	repo.On("FindInstitution", mock.Anything, "Santa Monica College").Return(&domain.Institution{ID: 7}, nil)
	repo.On("FindInstitution", mock.Anything, "Nowhere U").Return(nil, domain.ErrNotFound)
	repo.On("FindMajor", mock.Anything, "Biology").Return(nil, errors.New("db down"))

	p := &domain.AcademicProfile{
		CurrentInstitutionName: "Santa Monica College",
		CurrentMajorName:       "Biology",
		TargetInstitutionName:  "Nowhere U",
	}
	NewService(repo).ResolveIDs(context.Background(), p)

	require.NotNil(t, p.CurrentInstitutionID)
	assert.Equal(t, int64(7), *p.CurrentInstitutionID)
	assert.Nil(t, p.CurrentMajorID)
	assert.Nil(t, p.TargetInstitutionID)
	assert.Nil(t, p.TargetMajorID)
	repo.AssertNotCalled(t, "FindMajor", mock.Anything, "")
}

func TestCoursesByInstitution(t *testing.T) {
	repo := &mockCatalogStore{}
	groups := []domain.InstitutionCourses{{
		Institution: domain.Institution{ID: 1, Name: "Santa Monica College"},
		Courses:     []domain.Course{{ID: 7, Code: "CS 3", Transferable: true}},
	}}
	repo.On("CoursesByInstitution", mock.Anything, "smc").Return(groups, nil)
	repo.On("CoursesByInstitution", mock.Anything, "nowhere").Return(nil, nil)
	repo.On("CoursesByInstitution", mock.Anything, "broken").Return(nil, errors.New("db down"))
	svc := NewService(repo)

	out, err := svc.CoursesByInstitution(context.Background(), "smc")
	require.NoError(t, err)
	assert.Equal(t, groups, out)

	out, err = svc.CoursesByInstitution(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	_, err = svc.CoursesByInstitution(context.Background(), "broken")
	assert.Error(t, err)
}
