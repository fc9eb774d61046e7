package activity

import (
	"time"

	"github.com/google/uuid"
)

// Raw rows as selected by the connectors. Joined columns are nullable: a
// deleted listing or profile must not break normalization.

type RegistrationRow struct {
	ID        uuid.UUID  `json:"id" gorm:"column:id"`
	Role      string     `json:"role" gorm:"column:role"`
	Status    string     `json:"status" gorm:"column:status"`
	Email     *string    `json:"email" gorm:"column:email"`
	ActorName *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt *time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"column:updated_at"`
}

type BookingRow struct {
	ID           uuid.UUID  `json:"id" gorm:"column:id"`
	Status       string     `json:"status" gorm:"column:status"`
	TotalAmount  int64      `json:"total_amount" gorm:"column:total_amount"`
	Currency     string     `json:"currency" gorm:"column:currency"`
	ListingTitle *string    `json:"listing_title" gorm:"column:listing_title"`
	ActorName    *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt    *time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    *time.Time `json:"updated_at" gorm:"column:updated_at"`
}

type ListingRow struct {
	ID        uuid.UUID  `json:"id" gorm:"column:id"`
	Title     *string    `json:"title" gorm:"column:title"`
	Status    string     `json:"status" gorm:"column:status"`
	ActorName *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt *time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"column:updated_at"`
}

type ReviewRow struct {
	ID           uuid.UUID  `json:"id" gorm:"column:id"`
	Rating       int        `json:"rating" gorm:"column:rating"`
	Comment      *string    `json:"comment" gorm:"column:comment"`
	ListingTitle *string    `json:"listing_title" gorm:"column:listing_title"`
	ActorName    *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt    *time.Time `json:"created_at" gorm:"column:created_at"`
}

type PaymentRow struct {
	ID        uuid.UUID  `json:"id" gorm:"column:id"`
	Status    string     `json:"status" gorm:"column:status"`
	Amount    int64      `json:"amount" gorm:"column:amount"`
	Currency  string     `json:"currency" gorm:"column:currency"`
	ActorName *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt *time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"column:updated_at"`
}

type SupportTicketRow struct {
	ID        uuid.UUID  `json:"id" gorm:"column:id"`
	Subject   *string    `json:"subject" gorm:"column:subject"`
	Status    string     `json:"status" gorm:"column:status"`
	Priority  string     `json:"priority" gorm:"column:priority"`
	ActorName *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt *time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"column:updated_at"`
}

type BookingModificationRow struct {
	ID               uuid.UUID  `json:"id" gorm:"column:id"`
	ModificationType string     `json:"modification_type" gorm:"column:modification_type"`
	Status           string     `json:"status" gorm:"column:status"`
	Reason           *string    `json:"reason" gorm:"column:reason"`
	ListingTitle     *string    `json:"listing_title" gorm:"column:listing_title"`
	ActorName        *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt        *time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        *time.Time `json:"updated_at" gorm:"column:updated_at"`
}

type ConversationRow struct {
	ID          uuid.UUID  `json:"id" gorm:"column:id"`
	Subject     *string    `json:"subject" gorm:"column:subject"`
	LastMessage *string    `json:"last_message" gorm:"column:last_message"`
	ActorName   *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt   *time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   *time.Time `json:"updated_at" gorm:"column:updated_at"`
}

type FavoriteRow struct {
	ID           uuid.UUID  `json:"id" gorm:"column:id"`
	ListingTitle *string    `json:"listing_title" gorm:"column:listing_title"`
	ActorName    *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt    *time.Time `json:"created_at" gorm:"column:created_at"`
}

type AnnouncementRow struct {
	ID        uuid.UUID  `json:"id" gorm:"column:id"`
	Title     *string    `json:"title" gorm:"column:title"`
	Status    string     `json:"status" gorm:"column:status"`
	Audience  *string    `json:"audience" gorm:"column:audience"`
	ActorName *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt *time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"column:updated_at"`
}

type ModerationRow struct {
	ID          uuid.UUID  `json:"id" gorm:"column:id"`
	Action      string     `json:"action" gorm:"column:action"`
	TargetType  string     `json:"target_type" gorm:"column:target_type"`
	TargetLabel *string    `json:"target_label" gorm:"column:target_label"`
	Reason      *string    `json:"reason" gorm:"column:reason"`
	ActorName   *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt   *time.Time `json:"created_at" gorm:"column:created_at"`
}

type UserStatusChangeRow struct {
	ID        uuid.UUID  `json:"id" gorm:"column:id"`
	OldStatus *string    `json:"old_status" gorm:"column:old_status"`
	NewStatus string     `json:"new_status" gorm:"column:new_status"`
	Reason    *string    `json:"reason" gorm:"column:reason"`
	ActorName *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt *time.Time `json:"created_at" gorm:"column:created_at"`
}

type PayoutRequestRow struct {
	ID        uuid.UUID  `json:"id" gorm:"column:id"`
	Status    string     `json:"status" gorm:"column:status"`
	Amount    int64      `json:"amount" gorm:"column:amount"`
	Currency  string     `json:"currency" gorm:"column:currency"`
	ActorName *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt *time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt *time.Time `json:"updated_at" gorm:"column:updated_at"`
}

type RefundRow struct {
	ID           uuid.UUID  `json:"id" gorm:"column:id"`
	Status       string     `json:"status" gorm:"column:status"`
	Amount       int64      `json:"amount" gorm:"column:amount"`
	Currency     string     `json:"currency" gorm:"column:currency"`
	Reason       *string    `json:"reason" gorm:"column:reason"`
	ListingTitle *string    `json:"listing_title" gorm:"column:listing_title"`
	ActorName    *string    `json:"actor_name" gorm:"column:actor_name"`
	CreatedAt    *time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    *time.Time `json:"updated_at" gorm:"column:updated_at"`
}
