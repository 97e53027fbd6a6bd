package models

import "time"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// Terminal reports whether no further transition is allowed out of s
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusAccepted || s == RequestStatusRejected
}

// ItemRequest is a claim by a user on another user's item.
// A user gets one request per item, ever.
type ItemRequest struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	ItemID      uint          `json:"item_id" gorm:"not null;uniqueIndex:uniq_request_per_item_per_user"`
	Item        *Item         `json:"item,omitempty" gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	RequesterID uint          `json:"requester_id" gorm:"not null;uniqueIndex:uniq_request_per_item_per_user;index"`
	Requester   *User         `json:"requester,omitempty" gorm:"foreignKey:RequesterID;constraint:OnDelete:CASCADE"`
	Status      RequestStatus `json:"status" gorm:"size:20;not null;default:'pending';index"`
	CreatedAt   time.Time     `json:"created_at" gorm:"index"`

	// Filled only by listing queries that select the EXISTS(...) column
	HasReview bool `json:"has_review" gorm:"->;-:migration"`
}
