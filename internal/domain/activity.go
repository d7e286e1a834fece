package domain

import "time"

type ActivityType string

const (
	ActivityRegistration  ActivityType = "registration"
	ActivityAccountRepair ActivityType = "account_repair"
	ActivityProfileUpdate ActivityType = "profile_update"
	ActivityLogin         ActivityType = "login"
	ActivityPasswordReset ActivityType = "password_reset"
)

// ActivityLogEntry is one append-only event in a user's history.
type ActivityLogEntry struct {
	ActivityID   string            `json:"id" dynamodbav:"activity_id"`
	UserID       string            `json:"user_id" dynamodbav:"user_id"`
	ActivityType ActivityType      `json:"activity_type" dynamodbav:"activity_type"`
	Category     string            `json:"category" dynamodbav:"category"`
	Description  string            `json:"description" dynamodbav:"description"`
	Metadata     map[string]string `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
	Success      bool              `json:"success" dynamodbav:"success"`
	CreatedAt    time.Time         `json:"created" dynamodbav:"created_at"`
}
