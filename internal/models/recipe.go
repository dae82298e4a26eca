package models

import "time"

// Category groups recipes. Deleting a category detaches its recipes
// (SET NULL), it never deletes them.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Recipes   []Recipe  `gorm:"constraint:OnDelete:SET NULL" json:"recipes,omitempty"`
}

// Recipe is published by a chef. The owner reference is strong (deleting the
// owner deletes the recipe), the category reference is weak (recipe survives
// category deletion with a cleared reference).
type Recipe struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `gorm:"<-:create" json:"created_at"` // immuable après création
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	ImagePath   string    `gorm:"size:255" json:"image_path,omitempty"`
	CategoryID  *uint     `gorm:"index" json:"category_id,omitempty"`
	Category    *Category `json:"category,omitempty"`
	OwnerID     uint      `gorm:"index;not null" json:"owner_id"`
	Owner       User      `json:"owner,omitempty"`
	Reviews     []Review  `gorm:"constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
}

// GetOwnerID implements policy.Ownable.
func (r Recipe) GetOwnerID() uint { return r.OwnerID }
