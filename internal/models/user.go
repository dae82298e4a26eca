package models

import "time"

// Role is resolved at registration time and never inferred afterwards.
type Role string

const (
	RoleUser Role = "user"
	RoleChef Role = "chef"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleChef }

// User represents an authenticated user in the system.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Username  string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"` // hashé, jamais exposé en JSON
	// Profile carries the role. Exactly one per user, created in the same
	// transaction as the user itself.
	Profile *Profile `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	// Deleting a user deletes their recipes and reviews.
	Recipes []Recipe `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"recipes,omitempty"`
	Reviews []Review `gorm:"constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
}

// IsChef reports whether the user holds the chef role.
// A user with no loaded profile is treated as an ordinary user.
func (u *User) IsChef() bool {
	return u != nil && u.Profile != nil && u.Profile.Role == RoleChef
}

// Profile holds the per-user role attribute.
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Role      Role      `gorm:"size:10;not null;default:'user'" json:"role"`
}
