package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diewo77/recipes-app/httpx"
	"github.com/diewo77/recipes-app/internal/models"
	"github.com/diewo77/recipes-app/internal/policy"
	"github.com/diewo77/recipes-app/internal/services"
	"github.com/diewo77/recipes-app/validation"
	"github.com/diewo77/recipes-app/view"
)

const maxUploadBytes = 8 << 20

type RecipeHandler struct {
	Catalog  *services.CatalogService
	Reviews  *services.ReviewService
	Accounts *services.AccountService
	Policy   policy.RecipePolicy
	MediaDir string
	Log      *zap.Logger
}

func NewRecipeHandler(catalog *services.CatalogService, reviews *services.ReviewService, accounts *services.AccountService, mediaDir string, log *zap.Logger) *RecipeHandler {
	return &RecipeHandler{Catalog: catalog, Reviews: reviews, Accounts: accounts, MediaDir: mediaDir, Log: log}
}

// Landing is the public front page.
func (h *RecipeHandler) Landing(w http.ResponseWriter, r *http.Request) {
	if err := view.Render(w, r, "landing.html", nil); err != nil {
		writeError(w, r, http.StatusInternalServerError, "render_error")
	}
}

// List renders all recipes newest-first with the category list.
// Auth is enforced by the router, so a user is always present here.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.Catalog.ListRecipes(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed_to_list_recipes")
		return
	}
	categories, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed_to_list_categories")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"items": recipes, "total": len(recipes), "categories": categories})
		return
	}
	user := currentUser(r, h.Accounts)
	data := map[string]any{
		"Recipes":    recipes,
		"Categories": categories,
		"User":       user,
		"CanCreate":  policy.CanCreateRecipe(user),
	}
	if msg := popFlash(w, r); msg != "" {
		data["Flash"] = msg
	}
	if err := view.Render(w, r, "recipe_list.html", data); err != nil {
		writeError(w, r, http.StatusInternalServerError, "render_error")
	}
}

// Detail is public: recipe, reviews newest-first, fresh average, review form.
func (h *RecipeHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusNotFound, "not_found")
		return
	}
	recipe, err := h.Catalog.GetRecipe(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed_to_load_recipe")
		return
	}
	reviews, err := h.Reviews.List(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed_to_list_reviews")
		return
	}
	avg, hasAvg, err := h.Reviews.AverageRating(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed_to_aggregate")
		return
	}
	if httpx.WantsJSON(r) {
		payload := map[string]any{"recipe": recipe, "reviews": reviews}
		if hasAvg {
			payload["average_rating"] = avg
		} else {
			payload["average_rating"] = nil
		}
		httpx.JSON(w, http.StatusOK, payload)
		return
	}
	user := currentUser(r, h.Accounts)
	alreadyReviewed := false
	if user != nil {
		alreadyReviewed, _ = h.Reviews.HasReviewed(r.Context(), id, user.ID)
	}
	data := map[string]any{
		"Recipe":          recipe,
		"Reviews":         reviews,
		"AverageRating":   avg,
		"HasAverage":      hasAvg,
		"User":            user,
		"CanEdit":         policy.CanEditRecipe(user, recipe),
		"AlreadyReviewed": alreadyReviewed,
	}
	if msg := popFlash(w, r); msg != "" {
		data["Flash"] = msg
	}
	if err := view.Render(w, r, "recipe_detail.html", data); err != nil {
		writeError(w, r, http.StatusInternalServerError, "render_error")
	}
}

// Add creates a recipe. Chef role is checked before the form is even shown.
func (h *RecipeHandler) Add(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r, h.Accounts)
	if err := h.Policy.Authorize(user, policy.ActionCreate, nil); err != nil {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	if r.Method == http.MethodGet {
		h.renderRecipeForm(w, r, nil, nil, http.StatusOK)
		return
	}

	in, errs := h.parseRecipeForm(r)
	if !errs.Empty() {
		h.renderRecipeForm(w, r, nil, errs, http.StatusBadRequest)
		return
	}
	recipe, err := h.Catalog.CreateRecipe(r.Context(), user.ID, in)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok {
			h.renderRecipeForm(w, r, nil, ve.Fields, http.StatusBadRequest)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "recipe_create_failed")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, recipe)
		return
	}
	http.Redirect(w, r, "/recipes/", http.StatusSeeOther)
}

// Edit updates title, description, category and image of an owned recipe.
// Non-owners and non-chefs get an explicit 403, never a redirect.
func (h *RecipeHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusNotFound, "not_found")
		return
	}
	recipe, err := h.Catalog.GetRecipe(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed_to_load_recipe")
		return
	}
	user := currentUser(r, h.Accounts)
	if err := h.Policy.Authorize(user, policy.ActionUpdate, *recipe); err != nil {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	if r.Method == http.MethodGet {
		h.renderRecipeForm(w, r, recipe, nil, http.StatusOK)
		return
	}

	in, errs := h.parseRecipeForm(r)
	if !errs.Empty() {
		h.renderRecipeForm(w, r, recipe, errs, http.StatusBadRequest)
		return
	}
	updated, err := h.Catalog.UpdateRecipe(r.Context(), id, in)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok {
			h.renderRecipeForm(w, r, recipe, ve.Fields, http.StatusBadRequest)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "recipe_update_failed")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, updated)
		return
	}
	http.Redirect(w, r, "/"+strconv.FormatUint(uint64(id), 10)+"/", http.StatusSeeOther)
}

// Delete removes an owned recipe; its reviews go with it.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusNotFound, "not_found")
		return
	}
	recipe, err := h.Catalog.GetRecipe(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed_to_load_recipe")
		return
	}
	user := currentUser(r, h.Accounts)
	if err := h.Policy.Authorize(user, policy.ActionDelete, *recipe); err != nil {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	if err := h.Catalog.DeleteRecipe(r.Context(), id); err != nil {
		writeError(w, r, http.StatusInternalServerError, "recipe_delete_failed")
		return
	}
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
		return
	}
	http.Redirect(w, r, "/recipes/", http.StatusSeeOther)
}

// Review posts a one-per-user review then returns to the detail page.
// Invalid or duplicate submissions also return there, with a flash message
// instead of the historical silent drop.
func (h *RecipeHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, http.StatusNotFound, "not_found")
		return
	}
	detailURL := "/" + strconv.FormatUint(uint64(id), 10) + "/"
	if r.Method != http.MethodPost {
		http.Redirect(w, r, detailURL, http.StatusSeeOther)
		return
	}
	user := currentUser(r, h.Accounts)
	if user == nil {
		// Router already gates this; keep the invariant locally too.
		http.Redirect(w, r, "/accounts/login/", http.StatusSeeOther)
		return
	}
	rating, _ := strconv.Atoi(r.FormValue("rating"))
	comment := r.FormValue("comment")

	_, err := h.Reviews.Add(r.Context(), id, user.ID, rating, comment)
	switch {
	case err == nil:
		if httpx.WantsJSON(r) {
			httpx.JSON(w, http.StatusCreated, map[string]any{"recipe_id": id, "rating": rating})
			return
		}
	case errors.Is(err, services.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found")
		return
	case errors.Is(err, services.ErrDuplicate):
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusConflict, "already_reviewed", nil)
			return
		}
		setFlash(w, "Vous avez déjà donné votre avis sur cette recette.")
	default:
		if ve, ok := services.AsValidation(err); ok {
			if httpx.WantsJSON(r) {
				httpx.JSONError(w, http.StatusBadRequest, "validation_failed", ve.Fields)
				return
			}
			setFlash(w, "Avis invalide : la note doit être comprise entre 1 et 5.")
		} else {
			writeError(w, r, http.StatusInternalServerError, "review_failed")
			return
		}
	}
	http.Redirect(w, r, detailURL, http.StatusSeeOther)
}

// parseRecipeForm reads the create/edit form (multipart when an image is
// attached) into a RecipeInput.
func (h *RecipeHandler) parseRecipeForm(r *http.Request) (services.RecipeInput, validation.Violations) {
	errs := validation.Violations{}
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			errs["form"] = "invalid_form"
			return services.RecipeInput{}, errs
		}
	} else if err := r.ParseForm(); err != nil {
		errs["form"] = "invalid_form"
		return services.RecipeInput{}, errs
	}

	title := r.FormValue("title")
	description := r.FormValue("description")
	in := services.RecipeInput{Title: &title, Description: &description}

	if raw := r.FormValue("category_id"); raw != "" {
		if cid, err := strconv.ParseUint(raw, 10, 64); err == nil && cid > 0 {
			id := uint(cid)
			in.CategoryID = &id
		}
	} else {
		in.ClearCategory = true
	}

	if r.MultipartForm != nil {
		if path, err := h.saveImage(r); err != nil {
			errs["image"] = "upload_failed"
		} else if path != "" {
			in.ImagePath = &path
		}
	}
	return in, errs
}

// saveImage stores an uploaded image under MediaDir/recipes with a uuid
// filename and returns its web path. Empty path when no file was attached.
func (h *RecipeHandler) saveImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	dir := filepath.Join(h.MediaDir, "recipes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return "/media/recipes/" + name, nil
}

func (h *RecipeHandler) renderRecipeForm(w http.ResponseWriter, r *http.Request, recipe *models.Recipe, errs validation.Violations, status int) {
	if httpx.WantsJSON(r) && !errs.Empty() {
		httpx.JSONError(w, status, "validation_failed", errs)
		return
	}
	categories, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed_to_list_categories")
		return
	}
	data := map[string]any{"Categories": categories, "SelectedCategory": uint(0)}
	if recipe != nil {
		data["Recipe"] = recipe
		if recipe.CategoryID != nil {
			data["SelectedCategory"] = *recipe.CategoryID
		}
	}
	if !errs.Empty() {
		data["Errors"] = errs
		// keep what the user typed
		data["Title"] = r.FormValue("title")
		data["Description"] = r.FormValue("description")
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := view.Render(w, r, "recipe_form.html", data); err != nil {
		h.Log.Warn("recipe form render failed", zap.Error(err))
		_, _ = w.Write([]byte("render error"))
	}
}
