package dynamo

// DynamoDB attribute names used in key, condition and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldIdentityID     = "identity_id"
	fieldEmail          = "email"
	fieldUserID         = "user_id"
	fieldActivityID     = "activity_id"
	fieldCreatedAt      = "created_at"
	fieldUpdatedAt      = "updated_at"
	fieldEmailConfirmed = "email_confirmed"
	fieldPasswordHash   = "password_hash"
	fieldExpiresAt      = "expires_at"
	fieldVersion        = "version"
)

// Index names.
const (
	indexEmail         = "email-index"
	indexUserCreatedAt = "user_id-created_at-index"
)
