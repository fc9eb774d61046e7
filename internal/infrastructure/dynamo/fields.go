package dynamo

// Attribute and index names of the admin notification table.
const (
	fieldNotificationID = "notification_id"
	fieldUserID         = "user_id"
	fieldCreatedAt      = "created_at"
	fieldUpdatedAt      = "updated_at"
	fieldReaded         = "readed"

	userCreatedIndex = "user_id-created_at-index"
)
