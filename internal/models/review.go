package models

import "time"

// Review is a rating plus optional comment a user attaches to a recipe.
// The composite unique index on (recipe_id, user_id) is the hard guarantee
// that a user reviews a recipe at most once; the service layer only gives
// the nicer error message. Reviews are immutable once posted.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_review_recipe_user,priority:1" json:"recipe_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_recipe_user,priority:2" json:"user_id"`
	User      User      `json:"user,omitempty"`
	Rating    int       `gorm:"not null" json:"rating"` // 1 à 5, validé côté service
	Comment   string    `gorm:"type:text" json:"comment,omitempty"`
}
