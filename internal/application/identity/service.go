// Package identity is the Identity Service: it owns principals, password
// hashes and the email-confirmed flag.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/univio-api/internal/domain"
	"github.com/univio-api/internal/pkg/email"
	"github.com/univio-api/internal/pkg/id"
)

type Service interface {
	Create(ctx context.Context, addr, password string, meta domain.IdentityMetadata) (*domain.Identity, error)
	Authenticate(ctx context.Context, addr, password string) (*domain.Identity, error)
	Get(ctx context.Context, identityID string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, addr string) (*domain.Identity, error)
	ConfirmEmail(ctx context.Context, identityID string) error
	// SetPassword replaces the password hash of an existing identity.
	SetPassword(ctx context.Context, identityID, password string) error
}

type identityStore interface {
	Create(ctx context.Context, ident *domain.Identity) error
	Get(ctx context.Context, identityID string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	ConfirmEmail(ctx context.Context, identityID string) error
	UpdatePasswordHash(ctx context.Context, identityID, hash string) error
}

type ServiceDeps struct {
	Repo identityStore
	Cost int // bcrypt cost; zero means bcrypt.DefaultCost
}

type service struct {
	repo identityStore
	cost int
}

func NewService(deps ServiceDeps) Service {
	cost := deps.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{repo: deps.Repo, cost: cost}
}

func (s *service) Create(ctx context.Context, addr, password string, meta domain.IdentityMetadata) (*domain.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", domain.ErrBadRequest)
	}
	meta.InstitutionalEmail = email.Normalize(meta.InstitutionalEmail)
	now := time.Now().UTC()
	ident := &domain.Identity{
		IdentityID:   id.New(),
		Email:        email.Normalize(addr),
		PasswordHash: string(hash),
		Metadata:     meta,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, ident); err != nil {
		return nil, err
	}
	return ident, nil
}

// Authenticate returns ErrUnauthorized for both unknown addresses and wrong
// passwords.
func (s *service) Authenticate(ctx context.Context, addr, password string) (*domain.Identity, error) {
	ident, err := s.repo.GetByEmail(ctx, email.Normalize(addr))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return ident, nil
}

func (s *service) Get(ctx context.Context, identityID string) (*domain.Identity, error) {
	return s.repo.Get(ctx, identityID)
}

func (s *service) FindByEmail(ctx context.Context, addr string) (*domain.Identity, error) {
	return s.repo.GetByEmail(ctx, email.Normalize(addr))
}

func (s *service) ConfirmEmail(ctx context.Context, identityID string) error {
	return s.repo.ConfirmEmail(ctx, identityID)
}

func (s *service) SetPassword(ctx context.Context, identityID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", domain.ErrBadRequest)
	}
	return s.repo.UpdatePasswordHash(ctx, identityID, string(hash))
}
