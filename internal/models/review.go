package models

import "time"

// Review is the requester's rating of the item owner for one accepted request
type Review struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	ItemRequestID  uint         `json:"item_request_id" gorm:"not null;uniqueIndex"`
	ItemRequest    *ItemRequest `json:"item_request,omitempty" gorm:"foreignKey:ItemRequestID;constraint:OnDelete:CASCADE"`
	ReviewedUserID uint         `json:"reviewed_user_id" gorm:"not null;index"`
	ReviewedUser   *User        `json:"reviewed_user,omitempty" gorm:"foreignKey:ReviewedUserID;constraint:OnDelete:CASCADE"`
	ReviewerID     uint         `json:"reviewer_id" gorm:"not null;index"`
	Reviewer       *User        `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID;constraint:OnDelete:CASCADE"`
	Rating         int          `json:"rating" gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5"`
	Text           string       `json:"text" gorm:"type:text"`
	CreatedAt      time.Time    `json:"created_at" gorm:"index"`
}

// CreateReviewRequest defines the body for leaving a review
type CreateReviewRequest struct {
	Rating int    `json:"rating" form:"rating"`
	Text   string `json:"text" form:"text" validate:"max=5000"`
}

// RatingStats aggregates the reviews a user has received
type RatingStats struct {
	Average *float64 `json:"rating_avg"`
	Count   int64    `json:"rating_count"`
}
