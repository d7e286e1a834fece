package domain

import "time"

// User is the Record Store mirror of an identity, keyed by the identity id.
// When it disagrees with the identity on email or verification flags, the
// identity wins.
type User struct {
	UserID                       string     `json:"id" dynamodbav:"user_id"`
	Email                        string     `json:"email" dynamodbav:"email"`
	FirstName                    string     `json:"first_name" dynamodbav:"first_name"`
	LastName                     string     `json:"last_name" dynamodbav:"last_name"`
	InstitutionalEmail           string     `json:"institutional_email,omitempty" dynamodbav:"institutional_email"`
	InstitutionalEmailVerified   bool       `json:"institutional_email_verified" dynamodbav:"institutional_email_verified"`
	InstitutionalEmailVerifiedAt *time.Time `json:"institutional_email_verified_at,omitempty" dynamodbav:"institutional_email_verified_at,omitempty"`
	PersonalEmailVerified        bool       `json:"personal_email_verified" dynamodbav:"personal_email_verified"`
	IsActive                     bool       `json:"is_active" dynamodbav:"is_active"`
	CreatedAt                    time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt                    time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// NewUserFromIdentity builds the mirror row for an identity.
func NewUserFromIdentity(ident *Identity, now time.Time) *User {
	u := &User{
		UserID:                     ident.IdentityID,
		Email:                      ident.Email,
		FirstName:                  ident.Metadata.FirstName,
		LastName:                   ident.Metadata.LastName,
		InstitutionalEmail:         ident.Metadata.InstitutionalEmail,
		InstitutionalEmailVerified: ident.Metadata.InstitutionalEmailVerified,
		PersonalEmailVerified:      ident.Metadata.PersonalEmailVerified,
		IsActive:                   true,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
	if u.InstitutionalEmailVerified {
		at := now
		u.InstitutionalEmailVerifiedAt = &at
	}
	return u
}
