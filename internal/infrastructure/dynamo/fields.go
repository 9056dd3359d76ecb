package dynamo

// DynamoDB attribute names used in keys, conditions and projections.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID    = "user_id"
	fieldOwnerID   = "owner_id"
	fieldEmail     = "email"
	fieldPurpose   = "purpose"
	fieldCodeHash  = "code_hash"
	fieldTokenHash = "token_hash"
	fieldExpiresAt = "expires_at"
	fieldAttempts  = "attempts"
	fieldUpdatedAt = "updated_at"
	fieldItemCount = "items_count"

	indexEmail = "email-index"
)

// publicUserFields is the projection for the safe identity view. The
// password hash and password-change timestamp are never read through it.
var publicUserFields = []string{
	"user_id", "email", "first_name", "last_name", "role",
	"is_account_verified", "avatar_url", "created_at", "updated_at",
}
