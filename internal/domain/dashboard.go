package domain

import "time"

const DefaultRemainingUnits = 120

// DashboardMetrics is the per-user progress summary. Provisioning creates it
// once and never overwrites it.
type DashboardMetrics struct {
	UserID                 string    `json:"user_id" dynamodbav:"user_id"`
	CompletedUnits         int       `json:"completed_units" dynamodbav:"completed_units"`
	RemainingUnits         int       `json:"remaining_units" dynamodbav:"remaining_units"`
	TotalCoursesCompleted  int       `json:"total_courses_completed" dynamodbav:"total_courses_completed"`
	TotalCoursesPlanned    int       `json:"total_courses_planned" dynamodbav:"total_courses_planned"`
	CurrentQuarterUnits    int       `json:"current_quarter_units" dynamodbav:"current_quarter_units"`
	CumulativeGPA          *float64  `json:"cumulative_gpa,omitempty" dynamodbav:"cumulative_gpa,omitempty"`
	TransferReadinessScore int       `json:"transfer_readiness_score" dynamodbav:"transfer_readiness_score"`
	RequirementsCompleted  int       `json:"requirements_completed" dynamodbav:"requirements_completed"`
	RequirementsTotal      int       `json:"requirements_total" dynamodbav:"requirements_total"`
	OnTrackForTransfer     bool      `json:"on_track_for_transfer" dynamodbav:"on_track_for_transfer"`
	TotalPlanningSessions  int       `json:"total_planning_sessions" dynamodbav:"total_planning_sessions"`
	DaysSinceLastActivity  int       `json:"days_since_last_activity" dynamodbav:"days_since_last_activity"`
	CalculatedAt           time.Time `json:"calculated_at" dynamodbav:"calculated_at"`
	CreatedAt              time.Time `json:"created" dynamodbav:"created_at"`
}

// NewDashboardMetrics returns a zeroed row seeded with the profile GPA.
func NewDashboardMetrics(userID string, gpa *float64, now time.Time) *DashboardMetrics {
	return &DashboardMetrics{
		UserID:         userID,
		RemainingUnits: DefaultRemainingUnits,
		CumulativeGPA:  gpa,
		CalculatedAt:   now,
		CreatedAt:      now,
	}
}
