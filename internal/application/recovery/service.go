// Package recovery resets forgotten passwords with a mailed one-time code.
//
// RequestReset behaves the same whether or not the address has an account,
// so the endpoint in front of it cannot be used to discover accounts.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/univio-api/internal/domain"
	"github.com/univio-api/internal/pkg/email"
	"github.com/univio-api/internal/pkg/id"
)

// RequestedMessage is the reply to every reset request.
const RequestedMessage = "If an account with this email exists, you will receive a password reset link shortly."

type Service interface {
	RequestReset(ctx context.Context, addr string) error
	// Reset checks the code and, on success, stores the new password. A
	// rejected code is reported through the result, not the error.
	Reset(ctx context.Context, req domain.PasswordResetConfirmRequest) (domain.VerifyResult, error)
}

type identityService interface {
	FindByEmail(ctx context.Context, addr string) (*domain.Identity, error)
	SetPassword(ctx context.Context, identityID, password string) error
}

type challengeService interface {
	SendReset(ctx context.Context, addr, firstName string) (*domain.Challenge, error)
	VerifyReset(ctx context.Context, addr, code string) (domain.VerifyResult, error)
}

type activityStore interface {
	Append(ctx context.Context, e *domain.ActivityLogEntry) error
}

type ServiceDeps struct {
	Identities identityService
	Challenges challengeService
	Activity   activityStore // optional
	Now        func() time.Time
}

type service struct {
	identities identityService
	challenges challengeService
	activity   activityStore
	now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		identities: deps.Identities,
		challenges: deps.Challenges,
		activity:   deps.Activity,
		now:        deps.Now,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *service) RequestReset(ctx context.Context, addr string) error {
	addr = email.Normalize(addr)
	ident, err := s.identities.FindByEmail(ctx, addr)
	if errors.Is(err, domain.ErrNotFound) {
		slog.Info("password reset requested for unknown address", "email_domain", email.Domain(addr))
		return nil
	}
	if err != nil {
		return err
	}

	// From here on the outcome depends on the account, so failures stay in
	// the log and the caller sees the same reply either way.
	if _, err := s.challenges.SendReset(ctx, ident.Email, ident.Metadata.FirstName); err != nil {
		slog.Warn("password reset code not sent", "identity_id", ident.IdentityID, "err", err)
		return nil
	}
	slog.Info("password reset code sent", "identity_id", ident.IdentityID)
	return nil
}

func (s *service) Reset(ctx context.Context, req domain.PasswordResetConfirmRequest) (domain.VerifyResult, error) {
	addr := email.Normalize(req.Email)
	res, err := s.challenges.VerifyReset(ctx, addr, req.Code)
	if err != nil || !res.OK() {
		return res, err
	}

	ident, err := s.identities.FindByEmail(ctx, addr)
	if err != nil {
		return domain.VerifyResult{}, fmt.Errorf("find identity: %w", err)
	}
	if err := s.identities.SetPassword(ctx, ident.IdentityID, req.Password); err != nil {
		return domain.VerifyResult{}, fmt.Errorf("set password: %w", err)
	}
	slog.Info("password reset", "identity_id", ident.IdentityID)

	if s.activity != nil {
		now := s.now()
		err := s.activity.Append(ctx, &domain.ActivityLogEntry{
			ActivityID:   id.NewAt(now),
			UserID:       ident.IdentityID,
			ActivityType: domain.ActivityPasswordReset,
			Category:     "security",
			Description:  "Password reset with emailed code",
			Success:      true,
			CreatedAt:    now,
		})
		if err != nil {
			slog.Warn("failed to log password reset activity", "identity_id", ident.IdentityID, "err", err)
		}
	}
	return res, nil
}
