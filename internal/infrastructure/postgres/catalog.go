package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/univio-api/internal/domain"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// CatalogRepo looks up institutions and majors by case-insensitive substring.
type CatalogRepo struct {
	db Querier
}

func NewCatalogRepo(db Querier) *CatalogRepo {
	return &CatalogRepo{db: db}
}

const searchInstitutionsSQL = `
SELECT id, name, short_name, is_active
FROM institutions
WHERE is_active AND (name ILIKE $1 OR short_name ILIKE $1)
ORDER BY (lower(name) = lower($2)) DESC, length(name), name
LIMIT $3`

const searchMajorsSQL = `
SELECT id, name, is_active
FROM majors
WHERE is_active AND name ILIKE $1
ORDER BY (lower(name) = lower($2)) DESC, length(name), name
LIMIT $3`

func (r *CatalogRepo) SearchInstitutions(ctx context.Context, q string, limit int) ([]domain.Institution, error) {
	rows, err := r.db.QueryContext(ctx, searchInstitutionsSQL, likePattern(q), strings.TrimSpace(q), limit)
	if err != nil {
		return nil, fmt.Errorf("search institutions: %w", err)
	}
	defer rows.Close()

	var out []domain.Institution
	for rows.Next() {
		var in domain.Institution
		if err := rows.Scan(&in.ID, &in.Name, &in.ShortName, &in.IsActive); err != nil {
			return nil, fmt.Errorf("scan institution: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) SearchMajors(ctx context.Context, q string, limit int) ([]domain.Major, error) {
	rows, err := r.db.QueryContext(ctx, searchMajorsSQL, likePattern(q), strings.TrimSpace(q), limit)
	if err != nil {
		return nil, fmt.Errorf("search majors: %w", err)
	}
	defer rows.Close()

	var out []domain.Major
	for rows.Next() {
		var m domain.Major
		if err := rows.Scan(&m.ID, &m.Name, &m.IsActive); err != nil {
			return nil, fmt.Errorf("scan major: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FindInstitution returns the best match for name, or domain.ErrNotFound.
func (r *CatalogRepo) FindInstitution(ctx context.Context, name string) (*domain.Institution, error) {
	var in domain.Institution
	err := r.db.QueryRowContext(ctx, searchInstitutionsSQL, likePattern(name), strings.TrimSpace(name), 1).
		Scan(&in.ID, &in.Name, &in.ShortName, &in.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("institution %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find institution: %w", err)
	}
	return &in, nil
}

// FindMajor returns the best match for name, or domain.ErrNotFound.
func (r *CatalogRepo) FindMajor(ctx context.Context, name string) (*domain.Major, error) {
	var m domain.Major
	err := r.db.QueryRowContext(ctx, searchMajorsSQL, likePattern(name), strings.TrimSpace(name), 1).
		Scan(&m.ID, &m.Name, &m.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("major %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find major: %w", err)
	}
	return &m, nil
}

const coursesByInstitutionSQL = `
SELECT i.id, i.name, i.short_name, i.is_active,
       c.id, c.course_code, c.course_name, c.units, c.category, c.subject_area, c.transferable
FROM courses c
JOIN institutions i ON i.id = c.institution_id
WHERE i.is_active AND ($1::text = '' OR i.name ILIKE $2 OR i.short_name ILIKE $2)
ORDER BY i.name, c.subject_area, c.course_code`

// CoursesByInstitution returns courses grouped by institution. An empty
// institution filter returns every active institution's courses.
func (r *CatalogRepo) CoursesByInstitution(ctx context.Context, institution string) ([]domain.InstitutionCourses, error) {
	institution = strings.TrimSpace(institution)
	rows, err := r.db.QueryContext(ctx, coursesByInstitutionSQL, institution, likePattern(institution))
	if err != nil {
		return nil, fmt.Errorf("courses by institution: %w", err)
	}
	defer rows.Close()

	var out []domain.InstitutionCourses
	for rows.Next() {
		var in domain.Institution
		var c domain.Course
		if err := rows.Scan(&in.ID, &in.Name, &in.ShortName, &in.IsActive,
			&c.ID, &c.Code, &c.Name, &c.Units, &c.Category, &c.Subject, &c.Transferable); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].Institution.ID != in.ID {
			out = append(out, domain.InstitutionCourses{Institution: in})
		}
		last := &out[len(out)-1]
		last.Courses = append(last.Courses, c)
	}
	return out, rows.Err()
}

// likePattern escapes LIKE metacharacters and wraps q for substring matching.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(q)) + "%"
}
