package models

import "time"

type ItemMode string

const (
	ItemModeRent ItemMode = "rent"
	ItemModeSwap ItemMode = "swap"
)

// ParseItemMode returns the mode and true only for "rent" and "swap"
func ParseItemMode(s string) (ItemMode, bool) {
	switch ItemMode(s) {
	case ItemModeRent, ItemModeSwap:
		return ItemMode(s), true
	}
	return "", false
}

// Item is a listing offered for rent or swap by its owner
type Item struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	OwnerID     uint      `json:"owner_id" gorm:"not null;index"`
	Owner       *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Title       string    `json:"title" gorm:"size:120;not null"`
	Description string    `json:"description" gorm:"type:text"`
	ImageRef    *string   `json:"image_ref,omitempty"` // GridFS file id
	Mode        ItemMode  `json:"mode" gorm:"size:10;not null;default:'swap';index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

// CreateItemRequest defines the form/JSON body for listing a new item
type CreateItemRequest struct {
	Title       string `json:"title" form:"title" validate:"required,min=1,max=120"`
	Description string `json:"description" form:"description" validate:"max=5000"`
	Mode        string `json:"mode" form:"mode" validate:"omitempty,oneof=rent swap"`
}

// UpdateItemRequest replaces the editable fields of an item
type UpdateItemRequest struct {
	Title       string `json:"title" form:"title" validate:"required,min=1,max=120"`
	Description string `json:"description" form:"description" validate:"max=5000"`
	Mode        string `json:"mode" form:"mode" validate:"required,oneof=rent swap"`
}
