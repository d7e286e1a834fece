package domain

import "time"

const (
	DefaultMaxUnitsPerQuarter = 16
	DefaultStudyIntensity     = "moderate"
)

// AcademicProfile holds a student's current and target programs. At most one
// per user; a user without one is a normal state.
type AcademicProfile struct {
	UserID                  string    `json:"user_id" dynamodbav:"user_id"`
	CurrentInstitutionName  string    `json:"current_institution_name" dynamodbav:"current_institution_name"`
	CurrentInstitutionID    *int64    `json:"current_institution_id,omitempty" dynamodbav:"current_institution_id,omitempty"`
	CurrentMajorName        string    `json:"current_major_name" dynamodbav:"current_major_name"`
	CurrentMajorID          *int64    `json:"current_major_id,omitempty" dynamodbav:"current_major_id,omitempty"`
	TargetInstitutionName   string    `json:"target_institution_name,omitempty" dynamodbav:"target_institution_name"`
	TargetInstitutionID     *int64    `json:"target_institution_id,omitempty" dynamodbav:"target_institution_id,omitempty"`
	TargetMajorName         string    `json:"target_major_name,omitempty" dynamodbav:"target_major_name"`
	TargetMajorID           *int64    `json:"target_major_id,omitempty" dynamodbav:"target_major_id,omitempty"`
	CurrentGPA              *float64  `json:"current_gpa,omitempty" dynamodbav:"current_gpa,omitempty"`
	ExpectedTransferYear    *int      `json:"expected_transfer_year,omitempty" dynamodbav:"expected_transfer_year,omitempty"`
	ExpectedTransferQuarter string    `json:"expected_transfer_quarter,omitempty" dynamodbav:"expected_transfer_quarter"`
	MaxUnitsPerQuarter      int       `json:"max_units_per_quarter" dynamodbav:"max_units_per_quarter"`
	PreferredStudyIntensity string    `json:"preferred_study_intensity" dynamodbav:"preferred_study_intensity"`
	IsComplete              bool      `json:"is_complete" dynamodbav:"is_complete"`
	CreatedAt               time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt               time.Time `json:"updated" dynamodbav:"updated_at"`
}

// NewAcademicProfile builds a profile from the academic fields of an identity.
func NewAcademicProfile(userID string, m IdentityMetadata, now time.Time) *AcademicProfile {
	return &AcademicProfile{
		UserID:                  userID,
		CurrentInstitutionName:  m.CurrentInstitution,
		CurrentMajorName:        m.CurrentMajor,
		TargetInstitutionName:   m.TargetInstitution,
		TargetMajorName:         m.TargetMajor,
		CurrentGPA:              m.CurrentGPA,
		ExpectedTransferYear:    m.ExpectedTransferYear,
		ExpectedTransferQuarter: m.ExpectedTransferQuarter,
		MaxUnitsPerQuarter:      DefaultMaxUnitsPerQuarter,
		PreferredStudyIntensity: DefaultStudyIntensity,
		IsComplete:              m.TargetInstitution != "" && m.TargetMajor != "",
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

// UpdateAcademicProfileRequest is the body of PUT /v1/profile/academic.
type UpdateAcademicProfileRequest struct {
	CurrentInstitution      string   `json:"current_institution" validate:"required"`
	CurrentMajor            string   `json:"current_major" validate:"required"`
	TargetInstitution       string   `json:"target_institution"`
	TargetMajor             string   `json:"target_major"`
	CurrentGPA              *float64 `json:"current_gpa" validate:"omitempty,gte=0,lte=4"`
	ExpectedTransferYear    *int     `json:"expected_transfer_year" validate:"omitempty,gte=2000,lte=2100"`
	ExpectedTransferQuarter string   `json:"expected_transfer_quarter" validate:"omitempty,oneof=Fall Winter Spring Summer"`
	MaxUnitsPerQuarter      *int     `json:"max_units_per_quarter" validate:"omitempty,gte=1,lte=30"`
	PreferredStudyIntensity string   `json:"preferred_study_intensity" validate:"omitempty,oneof=light moderate intensive"`
}
