package models

import "time"

const (
	NotificationItemRequest     = "item_request"
	NotificationRequestAccepted = "request_accepted"
	NotificationRequestRejected = "request_rejected"
	NotificationReview          = "review"
)

// Notification tells a user that something happened to their item or request
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Type        string    `json:"type" gorm:"size:30;index"` // item_request, request_accepted, request_rejected, review
	ActorID     uint      `json:"actor_id" gorm:"index"`
	RecipientID uint      `json:"recipient_id" gorm:"index"`
	TargetID    uint      `json:"target_id"`                  // item request ID or review ID
	TargetType  string    `json:"target_type" gorm:"size:20"` // item_request, review
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}
