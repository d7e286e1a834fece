package domain

import "time"

// Identity is the authentication principal owned by the Identity Service.
// It is the source of truth for email, password and verification flags.
type Identity struct {
	IdentityID     string           `json:"id" dynamodbav:"identity_id"`
	Email          string           `json:"email" dynamodbav:"email"`
	PasswordHash   string           `json:"-" dynamodbav:"password_hash"`
	EmailConfirmed bool             `json:"email_confirmed" dynamodbav:"email_confirmed"`
	Metadata       IdentityMetadata `json:"metadata" dynamodbav:"metadata"`
	CreatedAt      time.Time        `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time        `json:"updated" dynamodbav:"updated_at"`
}

// IdentityMetadata is the registration payload kept on the identity so that
// repair can rebuild dependent records without the original request.
type IdentityMetadata struct {
	FirstName                  string   `json:"first_name" dynamodbav:"first_name"`
	LastName                   string   `json:"last_name" dynamodbav:"last_name"`
	InstitutionalEmail         string   `json:"institutional_email,omitempty" dynamodbav:"institutional_email"`
	InstitutionalEmailVerified bool     `json:"institutional_email_verified" dynamodbav:"institutional_email_verified"`
	PersonalEmailVerified      bool     `json:"personal_email_verified" dynamodbav:"personal_email_verified"`
	CurrentInstitution         string   `json:"current_institution,omitempty" dynamodbav:"current_institution"`
	CurrentMajor               string   `json:"current_major,omitempty" dynamodbav:"current_major"`
	TargetInstitution          string   `json:"target_institution,omitempty" dynamodbav:"target_institution"`
	TargetMajor                string   `json:"target_major,omitempty" dynamodbav:"target_major"`
	CurrentGPA                 *float64 `json:"current_gpa,omitempty" dynamodbav:"current_gpa"`
	ExpectedTransferYear       *int     `json:"expected_transfer_year,omitempty" dynamodbav:"expected_transfer_year"`
	ExpectedTransferQuarter    string   `json:"expected_transfer_quarter,omitempty" dynamodbav:"expected_transfer_quarter"`
}

// HasAcademicInfo reports whether there is enough to build an academic profile.
func (m IdentityMetadata) HasAcademicInfo() bool {
	return m.CurrentInstitution != "" && m.CurrentMajor != ""
}

// DualVerified reports whether both addresses were proven.
func (m IdentityMetadata) DualVerified() bool {
	return m.InstitutionalEmailVerified && m.PersonalEmailVerified
}
