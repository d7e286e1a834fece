package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/univio-api/internal/domain"
	"github.com/univio-api/internal/pkg/id"
)

type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.Session, error)
}

type authenticator interface {
	Authenticate(ctx context.Context, addr, password string) (*domain.Identity, error)
}

type tokenSigner interface {
	Sign(userID, email string) (string, error)
	Expiry() time.Duration
}

type activityStore interface {
	Append(ctx context.Context, e *domain.ActivityLogEntry) error
}

type ServiceDeps struct {
	Identities authenticator
	Tokens     tokenSigner
	Activity   activityStore
}

type service struct {
	identities authenticator
	tokens     tokenSigner
	activity   activityStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		identities: deps.Identities,
		tokens:     deps.Tokens,
		activity:   deps.Activity,
	}
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Session, error) {
	ident, err := s.identities.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	bearer, err := s.tokens.Sign(ident.IdentityID, ident.Email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.activity.Append(ctx, &domain.ActivityLogEntry{
		ActivityID:   id.NewAt(now),
		UserID:       ident.IdentityID,
		ActivityType: domain.ActivityLogin,
		Category:     "auth",
		Description:  "Signed in",
		Success:      true,
		CreatedAt:    now,
	}); err != nil {
		slog.Warn("failed to log login activity", "identity_id", ident.IdentityID, "err", err)
	}

	return &domain.Session{
		Bearer:    bearer,
		ExpiresIn: int(s.tokens.Expiry() / time.Second),
		Identity:  ident,
	}, nil
}
