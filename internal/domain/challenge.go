package domain

import "time"

// Role names what a challenge is proving: ownership of one of a user's two
// email addresses, or the right to reset the account password.
type Role string

const (
	RoleInstitutional Role = "institutional"
	RolePersonal      Role = "personal"
	RolePasswordReset Role = "password_reset"
)

func (r Role) Valid() bool {
	return r == RoleInstitutional || r == RolePersonal || r == RolePasswordReset
}

// Challenge is one outstanding verification code for one email address.
type Challenge struct {
	Email     string    `json:"email" dynamodbav:"email"`
	Role      Role      `json:"role" dynamodbav:"role"`
	Code      string    `json:"code" dynamodbav:"code"`
	IssuedAt  time.Time `json:"issued_at" dynamodbav:"issued_at"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
	Attempts  int       `json:"attempts" dynamodbav:"attempts"`
}

func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ChallengeState is everything the verification store keeps under one email key:
// the live challenge (if any), the issuance history used for rate limiting, and
// the verified marker left behind by a successful check.
type ChallengeState struct {
	Current       *Challenge  `json:"current,omitempty" dynamodbav:"current,omitempty"`
	Issuances     []time.Time `json:"issuances,omitempty" dynamodbav:"issuances,omitempty"`
	VerifiedRole  Role        `json:"verified_role,omitempty" dynamodbav:"verified_role,omitempty"`
	VerifiedUntil time.Time   `json:"verified_until,omitempty" dynamodbav:"verified_until,omitempty"`
}

// Empty reports whether the state carries nothing worth persisting.
func (s *ChallengeState) Empty() bool {
	return s.Current == nil && len(s.Issuances) == 0 && s.VerifiedUntil.IsZero()
}

// PruneIssuances drops issuance timestamps older than horizon.
func (s *ChallengeState) PruneIssuances(now time.Time, horizon time.Duration) {
	cutoff := now.Add(-horizon)
	kept := s.Issuances[:0]
	for _, t := range s.Issuances {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		s.Issuances = nil
		return
	}
	s.Issuances = kept
}

// Horizon is the latest instant at which any part of the state still matters.
func (s *ChallengeState) Horizon(historyWindow time.Duration) time.Time {
	var h time.Time
	if s.Current != nil && s.Current.ExpiresAt.After(h) {
		h = s.Current.ExpiresAt
	}
	for _, t := range s.Issuances {
		if end := t.Add(historyWindow); end.After(h) {
			h = end
		}
	}
	if s.VerifiedUntil.After(h) {
		h = s.VerifiedUntil
	}
	return h
}

// VerifyOutcome is the single result of one verification attempt.
type VerifyOutcome string

const (
	OutcomeSuccess         VerifyOutcome = "success"
	OutcomeNotFound        VerifyOutcome = "not_found"
	OutcomeExpired         VerifyOutcome = "expired"
	OutcomeTooManyAttempts VerifyOutcome = "too_many_attempts"
	OutcomeMismatch        VerifyOutcome = "mismatch"
)

// VerifyResult carries the outcome; AttemptsRemaining is only meaningful on mismatch.
type VerifyResult struct {
	Outcome           VerifyOutcome `json:"outcome"`
	AttemptsRemaining int           `json:"attempts_remaining"`
}

func (r VerifyResult) OK() bool { return r.Outcome == OutcomeSuccess }

type SendCodeRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Role      Role   `json:"role" validate:"required,oneof=institutional personal"`
	FirstName string `json:"first_name"`
}

// PasswordResetRequest starts a reset; the response never says whether the
// address has an account.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  Role   `json:"role" validate:"required,oneof=institutional personal"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}
