package services

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/diewo77/recipes-app/internal/models"
	"github.com/diewo77/recipes-app/validation"
	"gorm.io/gorm"
)

// ReviewService owns reviews and the rating aggregate.
// Reviews are immutable once posted: no update or delete is exposed.
type ReviewService struct{ DB *gorm.DB }

func NewReviewService(db *gorm.DB) *ReviewService { return &ReviewService{DB: db} }

// Add posts a review. Ratings outside 1..5 fail validation; a second review
// by the same user on the same recipe fails on the unique index — the check
// is the database constraint, not an advisory pre-read.
func (s *ReviewService) Add(ctx context.Context, recipeID, userID uint, rating int, comment string) (*models.Review, error) {
	v := validation.Violations{}
	validation.RangeInt("rating", rating, 1, 5, v)
	if !v.Empty() {
		return nil, &ValidationError{Fields: v}
	}
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	rev := models.Review{RecipeID: recipeID, UserID: userID, Rating: rating, Comment: comment}
	if err := s.DB.WithContext(ctx).Create(&rev).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &rev, nil
}

// List returns a recipe's reviews newest-first with their authors.
func (s *ReviewService) List(ctx context.Context, recipeID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := s.DB.WithContext(ctx).
		Preload("User").
		Where("recipe_id = ?", recipeID).
		Order("created_at desc, id desc").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// AverageRating computes the mean rating rounded to 2 decimals. The second
// return is false when the recipe has no reviews: the average is absent,
// not zero. Recomputed on every call — reviews can land concurrently.
func (s *ReviewService) AverageRating(ctx context.Context, recipeID uint) (float64, bool, error) {
	var avg sql.NullFloat64
	err := s.DB.WithContext(ctx).
		Model(&models.Review{}).
		Where("recipe_id = ?", recipeID).
		Select("avg(rating)").
		Scan(&avg).Error
	if err != nil {
		return 0, false, err
	}
	if !avg.Valid {
		return 0, false, nil
	}
	return math.Round(avg.Float64*100) / 100, true, nil
}

// HasReviewed reports whether the user already posted a review on the recipe.
// Display-only helper; Add still relies on the unique index under concurrency.
func (s *ReviewService) HasReviewed(ctx context.Context, recipeID, userID uint) (bool, error) {
	var rev models.Review
	err := s.DB.WithContext(ctx).Where("recipe_id = ? AND user_id = ?", recipeID, userID).First(&rev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
