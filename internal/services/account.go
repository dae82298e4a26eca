package services

import (
	"context"
	"errors"

	"github.com/diewo77/recipes-app/internal/models"
	"github.com/diewo77/recipes-app/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AccountService owns user registration and credential checks.
type AccountService struct{ DB *gorm.DB }

func NewAccountService(db *gorm.DB) *AccountService { return &AccountService{DB: db} }

// ErrBadCredentials is returned by Authenticate for unknown user or wrong
// password; callers must not distinguish the two cases.
var ErrBadCredentials = errors.New("bad_credentials")

// Register creates a user and its profile in a single transaction, so the
// "every user has exactly one profile" invariant holds at the call site
// instead of depending on a hidden creation hook.
func (s *AccountService) Register(ctx context.Context, username, email, password string, role models.Role) (*models.User, error) {
	v := validation.Violations{}
	validation.Required("username", username, v)
	validation.Required("email", email, v)
	validation.Email("email", email, v)
	validation.Required("password", password, v)
	validation.MinLen("password", password, 8, v)
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		v["role"] = "unknown_role"
	}
	if !v.Empty() {
		return nil, &ValidationError{Fields: v}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: string(hashed),
		Profile:  &models.Profile{Role: role},
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&user).Error
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &user, nil
}

// Authenticate verifies username/password and returns the user with profile.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Preload("Profile").Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return &user, nil
}

// Get loads a user with its profile.
func (s *AccountService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
