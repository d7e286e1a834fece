package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/univio-api/internal/domain"
	"github.com/univio-api/internal/metrics"
	"github.com/univio-api/internal/notify"
	"github.com/univio-api/internal/pkg/email"
)

const (
	MaxAttempts       = 3
	DefaultTTL        = 10 * time.Minute
	VerifiedMarkerTTL = 30 * time.Minute
	KeyPrefix         = "challenge:"
	// ResetKeyPrefix keeps reset codes apart from email verification so a
	// reset never disturbs an in-flight verification.
	ResetKeyPrefix = KeyPrefix + "reset:"
)

// Store is an atomic per-key state store. Mutate must apply fn and write the
// result as one compare-and-set; an empty result deletes the key and an fn
// error aborts without writing.
type Store interface {
	Get(ctx context.Context, key string) (*domain.ChallengeState, error)
	Mutate(ctx context.Context, key string, fn func(*domain.ChallengeState) error) error
	Delete(ctx context.Context, key string) error
	Scan(ctx context.Context, fn func(key string) error) error
}

type Service interface {
	// Send checks the address against its role, issues a code and mails it.
	Send(ctx context.Context, req domain.SendCodeRequest) (*domain.Challenge, error)
	Issue(ctx context.Context, addr string, role domain.Role) (*domain.Challenge, error)
	Verify(ctx context.Context, addr, code string) (domain.VerifyResult, error)
	// SendReset issues and mails a password reset code.
	SendReset(ctx context.Context, addr, firstName string) (*domain.Challenge, error)
	// VerifyReset consumes a reset code. Success leaves no verified marker.
	VerifyReset(ctx context.Context, addr, code string) (domain.VerifyResult, error)
	IsVerified(ctx context.Context, addr string, role domain.Role) (bool, error)
	Cleanup(ctx context.Context) (int, error)
	Purge(ctx context.Context, addr string) error
	TTL() time.Duration
}

type ServiceDeps struct {
	Store    Store
	Notifier notify.Notifier
	Metrics  *metrics.Collector
	TTL      time.Duration
	Now      func() time.Time
	NewCode  func() (string, error)
}

type service struct {
	store    Store
	notifier notify.Notifier
	metrics  *metrics.Collector
	ttl      time.Duration
	now      func() time.Time
	newCode  func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:    deps.Store,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		ttl:      deps.TTL,
		now:      deps.Now,
		newCode:  deps.NewCode,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newCode == nil {
		s.newCode = GenerateCode
	}
	return s
}

// Key is the store key for an address.
func Key(addr string) string {
	return KeyPrefix + email.Normalize(addr)
}

// ResetKey is the store key for an address's password reset code.
func ResetKey(addr string) string {
	return ResetKeyPrefix + email.Normalize(addr)
}

func keyFor(addr string, role domain.Role) string {
	if role == domain.RolePasswordReset {
		return ResetKey(addr)
	}
	return Key(addr)
}

func (s *service) TTL() time.Duration { return s.ttl }

func (s *service) Send(ctx context.Context, req domain.SendCodeRequest) (*domain.Challenge, error) {
	if err := email.CheckRole(req.Email, req.Role); err != nil {
		return nil, err
	}
	return s.issueAndSend(ctx, req.Email, req.Role, req.FirstName)
}

func (s *service) SendReset(ctx context.Context, addr, firstName string) (*domain.Challenge, error) {
	return s.issueAndSend(ctx, addr, domain.RolePasswordReset, firstName)
}

func (s *service) issueAndSend(ctx context.Context, addr string, role domain.Role, firstName string) (*domain.Challenge, error) {
	c, err := s.Issue(ctx, addr, role)
	if err != nil {
		return nil, err
	}

	err = s.notifier.Send(ctx, domain.VerifyTemplateFor(role), c.Email, notify.TemplateData{
		FirstName:        firstName,
		Code:             c.Code,
		ExpiresInMinutes: int(s.ttl / time.Minute),
	})
	if err != nil {
		// The code never reached the user: drop it, keep the issuance so the
		// rate limit still applies to retries.
		s.withdraw(ctx, c)
		return nil, fmt.Errorf("send %s code: %w", role, err)
	}
	return c, nil
}

func (s *service) Issue(ctx context.Context, addr string, role domain.Role) (*domain.Challenge, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", role, domain.ErrBadRequest)
	}
	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	addr = email.Normalize(addr)

	var issued *domain.Challenge
	var throttledBy string
	err = s.store.Mutate(ctx, keyFor(addr, role), func(st *domain.ChallengeState) error {
		now := s.now()
		st.PruneIssuances(now, HistoryRetention)
		if rl, window := checkRate(st.Issuances, now); rl != nil {
			throttledBy = window
			return rl
		}
		issued = &domain.Challenge{
			Email:     addr,
			Role:      role,
			Code:      code,
			IssuedAt:  now,
			ExpiresAt: now.Add(s.ttl),
		}
		st.Current = issued
		st.Issuances = append(st.Issuances, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			s.metrics.CodeRateLimited(throttledBy)
			slog.Info("verification code rate limited", "window", throttledBy, "email_domain", email.Domain(addr))
			return nil, err
		}
		return nil, storeErr(err)
	}

	s.metrics.CodeIssued(string(role))
	slog.Info("verification code issued", "role", role, "email_domain", email.Domain(addr))
	c := *issued
	return &c, nil
}

func (s *service) Verify(ctx context.Context, addr, code string) (domain.VerifyResult, error) {
	return s.verify(ctx, Key(addr), code)
}

func (s *service) VerifyReset(ctx context.Context, addr, code string) (domain.VerifyResult, error) {
	return s.verify(ctx, ResetKey(addr), code)
}

func (s *service) verify(ctx context.Context, key, code string) (domain.VerifyResult, error) {
	var res domain.VerifyResult
	err := s.store.Mutate(ctx, key, func(st *domain.ChallengeState) error {
		now := s.now()
		st.PruneIssuances(now, HistoryRetention)
		c := st.Current
		switch {
		case c == nil:
			res = domain.VerifyResult{Outcome: domain.OutcomeNotFound}
		case c.Expired(now):
			st.Current = nil
			res = domain.VerifyResult{Outcome: domain.OutcomeExpired}
		case c.Attempts >= MaxAttempts:
			st.Current = nil
			res = domain.VerifyResult{Outcome: domain.OutcomeTooManyAttempts}
		case !codesEqual(code, c.Code):
			c.Attempts++
			res = domain.VerifyResult{Outcome: domain.OutcomeMismatch, AttemptsRemaining: MaxAttempts - c.Attempts}
		default:
			st.Current = nil
			if c.Role != domain.RolePasswordReset {
				st.VerifiedRole = c.Role
				st.VerifiedUntil = now.Add(VerifiedMarkerTTL)
			}
			res = domain.VerifyResult{Outcome: domain.OutcomeSuccess}
		}
		return nil
	})
	if err != nil {
		return domain.VerifyResult{}, storeErr(err)
	}
	s.metrics.VerifyOutcome(string(res.Outcome))
	return res, nil
}

func (s *service) IsVerified(ctx context.Context, addr string, role domain.Role) (bool, error) {
	st, err := s.store.Get(ctx, Key(addr))
	if err != nil {
		return false, storeErr(err)
	}
	if st == nil {
		return false, nil
	}
	return st.VerifiedRole == role && s.now().Before(st.VerifiedUntil), nil
}

// Cleanup removes expired records and stale history from every key. It
// returns the number of expired records removed.
func (s *service) Cleanup(ctx context.Context) (int, error) {
	removed := 0
	err := s.store.Scan(ctx, func(key string) error {
		var expired bool
		err := s.store.Mutate(ctx, key, func(st *domain.ChallengeState) error {
			now := s.now()
			expired = st.Current != nil && st.Current.Expired(now)
			if expired {
				st.Current = nil
			}
			st.PruneIssuances(now, HistoryRetention)
			if !st.VerifiedUntil.IsZero() && !now.Before(st.VerifiedUntil) {
				st.VerifiedUntil = time.Time{}
				st.VerifiedRole = ""
			}
			return nil
		})
		if err != nil {
			return err
		}
		if expired {
			removed++
		}
		return nil
	})
	s.metrics.CleanupRemoved(removed)
	if err != nil {
		return removed, storeErr(err)
	}
	return removed, nil
}

func (s *service) Purge(ctx context.Context, addr string) error {
	for _, key := range []string{Key(addr), ResetKey(addr)} {
		if err := s.store.Delete(ctx, key); err != nil {
			return storeErr(err)
		}
	}
	slog.Info("verification state purged", "email_domain", email.Domain(addr))
	return nil
}

// withdraw removes c if it is still the live record for its address.
func (s *service) withdraw(ctx context.Context, c *domain.Challenge) {
	err := s.store.Mutate(ctx, keyFor(c.Email, c.Role), func(st *domain.ChallengeState) error {
		if st.Current != nil && st.Current.Code == c.Code && st.Current.IssuedAt.Equal(c.IssuedAt) {
			st.Current = nil
		}
		return nil
	})
	if err != nil {
		slog.Warn("could not withdraw undelivered code", "err", err)
	}
}

func storeErr(err error) error {
	if errors.Is(err, domain.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("verification store: %w: %w", domain.ErrUnavailable, err)
}
