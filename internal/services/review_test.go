package services

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/recipes-app/internal/models"
)

func newReviewFixture(t *testing.T) (*ReviewService, *models.Recipe, *models.User, *models.User) {
	t.Helper()
	db := setupTestDB(t)
	accounts := NewAccountService(db)
	chef := seedChef(t, accounts, "chef1")
	u1, err := accounts.Register(context.Background(), "u1", "u1@example.com", "motdepasse", "")
	if err != nil {
		t.Fatalf("register u1: %v", err)
	}
	catalog := NewCatalogService(db)
	rec, err := catalog.CreateRecipe(context.Background(), chef.ID, RecipeInput{Title: str("Tarte"), Description: str("desc")})
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	return NewReviewService(db), rec, chef, u1
}

func TestAddReviewRatingRange(t *testing.T) {
	reviews, rec, _, u1 := newReviewFixture(t)

	for _, rating := range []int{0, -1, 6, 42} {
		_, err := reviews.Add(context.Background(), rec.ID, u1.ID, rating, "")
		if ve, ok := AsValidation(err); !ok || ve.Fields["rating"] == "" {
			t.Fatalf("rating %d: expected rating violation got %v", rating, err)
		}
	}
	if _, err := reviews.Add(context.Background(), rec.ID, u1.ID, 1, "ok"); err != nil {
		t.Fatalf("boundary rating 1 should be accepted: %v", err)
	}
}

func TestAddReviewUpperBound(t *testing.T) {
	reviews, rec, _, u1 := newReviewFixture(t)
	if _, err := reviews.Add(context.Background(), rec.ID, u1.ID, 5, "parfait"); err != nil {
		t.Fatalf("boundary rating 5 should be accepted: %v", err)
	}
}

func TestAddReviewDuplicate(t *testing.T) {
	reviews, rec, _, u1 := newReviewFixture(t)

	if _, err := reviews.Add(context.Background(), rec.ID, u1.ID, 4, "très bon"); err != nil {
		t.Fatalf("first review: %v", err)
	}
	_, err := reviews.Add(context.Background(), rec.ID, u1.ID, 2, "changé d'avis")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate got %v", err)
	}

	// the failed second insert must not move the average
	avg, ok, err := reviews.AverageRating(context.Background(), rec.ID)
	if err != nil || !ok {
		t.Fatalf("average: %v ok=%v", err, ok)
	}
	if avg != 4.0 {
		t.Fatalf("expected average 4.0 got %v", avg)
	}
}

func TestAddReviewMissingRecipe(t *testing.T) {
	reviews, _, _, u1 := newReviewFixture(t)
	if _, err := reviews.Add(context.Background(), 9999, u1.ID, 3, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestChefCanReviewOwnRecipe(t *testing.T) {
	reviews, rec, chef, _ := newReviewFixture(t)
	if _, err := reviews.Add(context.Background(), rec.ID, chef.ID, 5, "ma meilleure recette"); err != nil {
		t.Fatalf("owner review should be allowed: %v", err)
	}
}

func TestAverageRating(t *testing.T) {
	reviews, rec, chef, u1 := newReviewFixture(t)

	// no reviews: absent, not zero
	_, ok, err := reviews.AverageRating(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if ok {
		t.Fatalf("expected absent average with zero reviews")
	}

	if _, err := reviews.Add(context.Background(), rec.ID, u1.ID, 4, ""); err != nil {
		t.Fatalf("review 1: %v", err)
	}
	if _, err := reviews.Add(context.Background(), rec.ID, chef.ID, 2, ""); err != nil {
		t.Fatalf("review 2: %v", err)
	}
	avg, ok, err := reviews.AverageRating(context.Background(), rec.ID)
	if err != nil || !ok {
		t.Fatalf("average: %v ok=%v", err, ok)
	}
	if avg != 3.0 {
		t.Fatalf("expected 3.0 got %v", avg)
	}
}

func TestAverageRatingRounding(t *testing.T) {
	reviews, rec, chef, u1 := newReviewFixture(t)

	if _, err := reviews.Add(context.Background(), rec.ID, u1.ID, 4, ""); err != nil {
		t.Fatalf("review 1: %v", err)
	}
	if _, err := reviews.Add(context.Background(), rec.ID, chef.ID, 5, ""); err != nil {
		t.Fatalf("review 2: %v", err)
	}
	avg, ok, err := reviews.AverageRating(context.Background(), rec.ID)
	if err != nil || !ok {
		t.Fatalf("average: %v ok=%v", err, ok)
	}
	if avg != 4.5 {
		t.Fatalf("expected 4.5 got %v", avg)
	}
}

func TestListReviewsNewestFirst(t *testing.T) {
	reviews, rec, chef, u1 := newReviewFixture(t)

	if _, err := reviews.Add(context.Background(), rec.ID, u1.ID, 4, "premier avis"); err != nil {
		t.Fatalf("review 1: %v", err)
	}
	if _, err := reviews.Add(context.Background(), rec.ID, chef.ID, 5, "second avis"); err != nil {
		t.Fatalf("review 2: %v", err)
	}
	list, err := reviews.List(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 reviews got %d", len(list))
	}
	if list[0].Comment != "second avis" {
		t.Fatalf("expected newest first, got %q", list[0].Comment)
	}
	if list[0].User.Username == "" {
		t.Fatalf("expected author preloaded, got %+v", list[0].User)
	}
}
