package domain

import "time"

// Notification is a stored admin notification row. Unlike synthesized
// activity events it carries its own read flag.
type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	Kind           Category  `json:"kind" dynamodbav:"kind"`
	Title          string    `json:"title" dynamodbav:"title"`
	Message        string    `json:"message" dynamodbav:"message"`
	Priority       Priority  `json:"priority" dynamodbav:"priority"`
	ReferenceID    *string   `json:"reference_id" dynamodbav:"reference_id"`
	Readed         int       `json:"readed" dynamodbav:"readed"` // legacy field name preserved
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}
