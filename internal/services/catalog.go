package services

import (
	"context"
	"errors"

	"github.com/diewo77/recipes-app/internal/models"
	"github.com/diewo77/recipes-app/validation"
	"gorm.io/gorm"
)

// CatalogService owns categories and recipes.
type CatalogService struct{ DB *gorm.DB }

func NewCatalogService(db *gorm.DB) *CatalogService { return &CatalogService{DB: db} }

// RecipeInput carries the mutable recipe fields. Nil pointers on update mean
// "leave unchanged"; CategoryID may be set to nil explicitly via ClearCategory.
type RecipeInput struct {
	Title         *string
	Description   *string
	CategoryID    *uint
	ClearCategory bool
	ImagePath     *string
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	v := validation.Violations{}
	validation.Required("name", name, v)
	if !v.Empty() {
		return nil, &ValidationError{Fields: v}
	}
	cat := models.Category{Name: name}
	if err := s.DB.WithContext(ctx).Create(&cat).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &cat, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := s.DB.WithContext(ctx).Order("name asc").Find(&cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}

// DeleteCategory detaches referencing recipes (their category becomes none),
// it never deletes them. The SET NULL rule lives on the schema; the explicit
// update keeps sqlite dev setups without foreign_keys pragma correct too.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat models.Category
		if err := tx.First(&cat, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&models.Recipe{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&cat).Error
	})
}

func (s *CatalogService) CreateRecipe(ctx context.Context, ownerID uint, in RecipeInput) (*models.Recipe, error) {
	v := validation.Violations{}
	title, desc := deref(in.Title), deref(in.Description)
	validation.Required("title", title, v)
	validation.Required("description", desc, v)
	if !v.Empty() {
		return nil, &ValidationError{Fields: v}
	}
	rec := models.Recipe{
		Title:       title,
		Description: desc,
		CategoryID:  in.CategoryID,
		OwnerID:     ownerID,
	}
	if in.ImagePath != nil {
		rec.ImagePath = *in.ImagePath
	}
	if err := s.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *CatalogService) GetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var rec models.Recipe
	err := s.DB.WithContext(ctx).
		Preload("Category").
		Preload("Owner").
		First(&rec, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// UpdateRecipe applies a partial update. Owner and creation timestamp are
// never touched: updates go through an explicit column list.
func (s *CatalogService) UpdateRecipe(ctx context.Context, id uint, in RecipeInput) (*models.Recipe, error) {
	var rec models.Recipe
	if err := s.DB.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	updates := map[string]any{}
	if in.Title != nil {
		v := validation.Violations{}
		validation.Required("title", *in.Title, v)
		if !v.Empty() {
			return nil, &ValidationError{Fields: v}
		}
		updates["title"] = *in.Title
	}
	if in.Description != nil {
		v := validation.Violations{}
		validation.Required("description", *in.Description, v)
		if !v.Empty() {
			return nil, &ValidationError{Fields: v}
		}
		updates["description"] = *in.Description
	}
	if in.ClearCategory {
		updates["category_id"] = nil
	} else if in.CategoryID != nil {
		updates["category_id"] = *in.CategoryID
	}
	if in.ImagePath != nil {
		updates["image_path"] = *in.ImagePath
	}
	if len(updates) == 0 {
		return &rec, nil
	}
	if err := s.DB.WithContext(ctx).Model(&rec).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetRecipe(ctx, id)
}

// DeleteRecipe removes the recipe and all its reviews. The cascade rule is
// declared on the schema; the explicit review delete keeps sqlite dev setups
// without foreign_keys pragma correct too.
func (s *CatalogService) DeleteRecipe(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.Recipe
		if err := tx.First(&rec, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rec).Error
	})
}

// ListRecipes returns all recipes newest-first. Each call re-queries, so the
// result reflects current state rather than a frozen snapshot.
func (s *CatalogService) ListRecipes(ctx context.Context) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := s.DB.WithContext(ctx).
		Preload("Category").
		Preload("Owner").
		Order("created_at desc, id desc").
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	return recipes, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
