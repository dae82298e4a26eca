// Package policy decides whether a user may mutate catalog resources.
// Decisions are pure functions over already-loaded entities: no database
// access, no side effects. Handlers consult the policy before any mutation.
package policy

import (
	"errors"

	"github.com/diewo77/recipes-app/internal/models"
)

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ErrForbidden is returned by Authorize when the check fails.
// Handlers map it to HTTP 403, never to a login redirect.
var ErrForbidden = errors.New("forbidden")

// Ownable is implemented by resources that have an owning user.
type Ownable interface {
	GetOwnerID() uint
}

// CanCreateRecipe: only chefs publish recipes.
func CanCreateRecipe(u *models.User) bool {
	return u.IsChef()
}

// CanEditRecipe: the role is necessary but not sufficient — ownership must
// also hold, so one chef cannot modify another chef's recipe.
func CanEditRecipe(u *models.User, r *models.Recipe) bool {
	return u.IsChef() && r != nil && u.ID == r.OwnerID
}

// CanDeleteRecipe mirrors the edit rule.
func CanDeleteRecipe(u *models.User, r *models.Recipe) bool {
	return CanEditRecipe(u, r)
}

// RecipePolicy adapts the predicates above to the generic action/resource
// shape used by handlers and middleware.
type RecipePolicy struct{}

// Can returns true if user may perform action on resource.
// For create, resource may be nil (role-only check). Viewing is public.
func (RecipePolicy) Can(u *models.User, action Action, resource any) bool {
	switch action {
	case ActionView:
		return true
	case ActionCreate:
		return CanCreateRecipe(u)
	case ActionUpdate, ActionDelete:
		ownable, ok := resource.(Ownable)
		if !ok {
			// Resources without an owner cannot pass an ownership check.
			return false
		}
		return u.IsChef() && u.ID == ownable.GetOwnerID()
	default:
		return false
	}
}

// Authorize is the error-returning form of Can.
func (p RecipePolicy) Authorize(u *models.User, action Action, resource any) error {
	if !p.Can(u, action, resource) {
		return ErrForbidden
	}
	return nil
}
