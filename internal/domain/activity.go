package domain

import "time"

// Category identifies which kind of domain event an ActivityEvent was built from.
type Category string

const (
	CategoryRegistration        Category = "registration"
	CategoryBooking             Category = "booking"
	CategoryListing             Category = "listing"
	CategoryReview              Category = "review"
	CategoryPayment             Category = "payment"
	CategorySupportTicket       Category = "support_ticket"
	CategoryBookingModification Category = "booking_modification"
	CategoryConversation        Category = "conversation"
	CategoryFavorite            Category = "favorite"
	CategoryAnnouncement        Category = "announcement"
	CategoryModeration          Category = "moderation"
	CategoryUserStatusChange    Category = "user_status_change"
	CategoryPayoutRequest       Category = "payout_request"
	CategoryRefund              Category = "refund"
	// CategoryNotification is used for stored admin notification rows.
	CategoryNotification Category = "notification"
)

// Priority is an ordered urgency level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityRank = map[Priority]int{
	PriorityLow:    0,
	PriorityNormal: 1,
	PriorityMedium: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

// Rank returns the ordinal of p. Unknown priorities rank as normal.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return priorityRank[PriorityNormal]
}

// AtLeast reports whether p is as urgent as other.
func (p Priority) AtLeast(other Priority) bool {
	return p.Rank() >= other.Rank()
}

// ParsePriority maps a free-form value onto a Priority, defaulting to normal.
func ParsePriority(s string) Priority {
	p := Priority(s)
	if _, ok := priorityRank[p]; ok {
		return p
	}
	return PriorityNormal
}

// ActivityEvent is the canonical, source-agnostic feed entry. It is rebuilt on
// every aggregation pass and never persisted.
type ActivityEvent struct {
	ID          string    `json:"id"`
	Category    Category  `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Priority    Priority  `json:"priority"`
	// SourceRef is a value snapshot of the raw source row.
	SourceRef any `json:"source_ref,omitempty"`
}

// FeedItem is an ActivityEvent with the viewer's read state overlaid.
type FeedItem struct {
	ActivityEvent
	Read bool `json:"read"`
}

// WindowView is the visible slice of a viewer's feed plus its paging state.
type WindowView struct {
	Events       []FeedItem `json:"events"`
	TotalCount   int        `json:"total_count"`
	DisplayCount int        `json:"display_count"`
	HasMore      bool       `json:"has_more"`
	Loading      bool       `json:"loading"`
	Live         bool       `json:"live"`
	RefreshedAt  *time.Time `json:"refreshed_at,omitempty"`
	Error        string     `json:"error,omitempty"`
}
