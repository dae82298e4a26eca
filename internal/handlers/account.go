package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/recipes-app/auth"
	"github.com/diewo77/recipes-app/httpx"
	"github.com/diewo77/recipes-app/internal/models"
	"github.com/diewo77/recipes-app/internal/services"
	"github.com/diewo77/recipes-app/validation"
	"github.com/diewo77/recipes-app/view"
)

type AccountHandler struct {
	Accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{Accounts: accounts}
}

// Register wires the /accounts/ routes on the mux.
func (h *AccountHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/accounts/signup/{$}", h.Signup)
	mux.HandleFunc("/accounts/login/{$}", h.Login)
	mux.HandleFunc("/accounts/logout/{$}", h.Logout)
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		// Role default mirrors the model default.
		if err := view.Render(w, r, "signup.html", map[string]any{"Role": string(models.RoleUser)}); err != nil {
			writeError(w, r, http.StatusInternalServerError, "render_error")
		}
		return
	}

	username := r.FormValue("username")
	email := r.FormValue("email")
	password := r.FormValue("password1")
	confirm := r.FormValue("password2")
	role := models.Role(r.FormValue("role"))

	if password != confirm {
		h.renderSignupError(w, r, validation.Violations{"password2": "passwords_do_not_match"}, username, email, role)
		return
	}

	user, err := h.Accounts.Register(r.Context(), username, email, password, role)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok {
			h.renderSignupError(w, r, ve.Fields, username, email, role)
			return
		}
		if errors.Is(err, services.ErrDuplicate) {
			h.renderSignupError(w, r, validation.Violations{"username": "already_taken"}, username, email, role)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "signup_failed")
		return
	}

	// Session established here, in the originating handler, not in the service.
	auth.CreateSession(w, user.ID)
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, user)
		return
	}
	http.Redirect(w, r, "/recipes/", http.StatusSeeOther)
}

func (h *AccountHandler) renderSignupError(w http.ResponseWriter, r *http.Request, errs validation.Violations, username, email string, role models.Role) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", errs)
		return
	}
	w.WriteHeader(http.StatusBadRequest)
	if err := view.Render(w, r, "signup.html", map[string]any{
		"Errors":   errs,
		"Username": username,
		"Email":    email,
		"Role":     string(role),
	}); err != nil {
		_, _ = w.Write([]byte("signup failed"))
	}
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if err := view.Render(w, r, "login.html", nil); err != nil {
			writeError(w, r, http.StatusInternalServerError, "render_error")
		}
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := h.Accounts.Authenticate(r.Context(), username, password)
	if err != nil {
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusUnauthorized, "bad_credentials", nil)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		if rerr := view.Render(w, r, "login.html", map[string]any{"Error": "Identifiant ou mot de passe invalide"}); rerr != nil {
			_, _ = w.Write([]byte("login failed"))
		}
		return
	}

	auth.CreateSession(w, user.ID)
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, user)
		return
	}
	http.Redirect(w, r, "/recipes/", http.StatusSeeOther)
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
