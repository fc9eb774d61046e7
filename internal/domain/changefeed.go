package domain

// Change describes a row-level change observed on a source table.
type Change struct {
	Table string `json:"table"`
	Op    string `json:"op"`
}

const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
	// ChangeResync is emitted when the feed may have missed notifications.
	ChangeResync = "RESYNC"
)

// Subscription is a live change-feed registration.
type Subscription interface {
	Release()
}
