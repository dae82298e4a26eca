package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/recipes-app/internal/models"
	"github.com/diewo77/recipes-app/internal/services"
)

func newTestServer(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Profile{}, &models.Category{}, &models.Recipe{}, &models.Review{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db, t.TempDir(), zap.NewNop()), db
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, h http.Handler, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func sessionCookies(t *testing.T, rr *httptest.ResponseRecorder) []*http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			return []*http.Cookie{c}
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func signup(t *testing.T, h http.Handler, username, role string) []*http.Cookie {
	t.Helper()
	form := url.Values{
		"username":  {username},
		"email":     {username + "@example.com"},
		"password1": {"motdepasse"},
		"password2": {"motdepasse"},
		"role":      {role},
	}
	rr := postForm(t, h, "/accounts/signup/", form, nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("signup %s: expected 303 got %d body=%s", username, rr.Code, rr.Body.String())
	}
	return sessionCookies(t, rr)
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestServer(t)
	if rr := get(t, h, "/health", nil); rr.Code != http.StatusOK {
		t.Fatalf("/health: got %d", rr.Code)
	}
	rr := get(t, h, "/healthz", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "ok") {
		t.Fatalf("/healthz: got %d %s", rr.Code, rr.Body.String())
	}
}

func TestLandingIsPublic(t *testing.T) {
	h, _ := newTestServer(t)
	if rr := get(t, h, "/", nil); rr.Code != http.StatusOK {
		t.Fatalf("landing: got %d", rr.Code)
	}
}

func TestRecipesListRequiresLogin(t *testing.T) {
	h, _ := newTestServer(t)
	rr := get(t, h, "/recipes/", nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/accounts/login/" {
		t.Fatalf("expected login redirect got %s", loc)
	}
}

// Full flow: a chef signs up, publishes a recipe under a category, and the
// list page shows it. A plain user then reviews it once.
func TestChefPublishAndUserReviewFlow(t *testing.T) {
	h, db := newTestServer(t)
	chefCookies := signup(t, h, "chef1", "chef")

	catalog := services.NewCatalogService(db)
	cat, err := catalog.CreateCategory(context.Background(), "Desserts")
	if err != nil {
		t.Fatalf("category: %v", err)
	}

	form := url.Values{
		"title":       {"Tarte"},
		"description": {"Une tarte aux pommes"},
		"category_id": {fmt.Sprint(cat.ID)},
	}
	rr := postForm(t, h, "/add/", form, chefCookies)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/recipes/" {
		t.Fatalf("add: expected 303 to /recipes/ got %d %s", rr.Code, rr.Header().Get("Location"))
	}

	rr = get(t, h, "/recipes/", chefCookies)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Tarte") {
		t.Fatalf("list: expected Tarte in 200 page, got %d", rr.Code)
	}

	var recipe models.Recipe
	if err := db.First(&recipe, "title = ?", "Tarte").Error; err != nil {
		t.Fatalf("recipe lookup: %v", err)
	}

	userCookies := signup(t, h, "u1", "user")
	rr = postForm(t, h, fmt.Sprintf("/%d/review/", recipe.ID), url.Values{"rating": {"5"}, "comment": {"excellent"}}, userCookies)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("review: expected 303 got %d", rr.Code)
	}

	rr = get(t, h, fmt.Sprintf("/%d/", recipe.ID), nil)
	body := rr.Body.String()
	if rr.Code != http.StatusOK || !strings.Contains(body, "excellent") {
		t.Fatalf("detail: expected review on page, got %d", rr.Code)
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	h, _ := newTestServer(t)
	signup(t, h, "chef1", "chef")

	form := url.Values{
		"username":  {"chef1"},
		"email":     {"other@example.com"},
		"password1": {"motdepasse"},
		"password2": {"motdepasse"},
		"role":      {"user"},
	}
	rr := postForm(t, h, "/accounts/signup/", form, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestLoginLogout(t *testing.T) {
	h, _ := newTestServer(t)
	signup(t, h, "u1", "user")

	rr := postForm(t, h, "/accounts/login/", url.Values{"username": {"u1"}, "password": {"mauvais-mdp"}}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401 got %d", rr.Code)
	}

	rr = postForm(t, h, "/accounts/login/", url.Values{"username": {"u1"}, "password": {"motdepasse"}}, nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("login: expected 303 got %d", rr.Code)
	}
	cookies := sessionCookies(t, rr)

	if rr := get(t, h, "/recipes/", cookies); rr.Code != http.StatusOK {
		t.Fatalf("list after login: got %d", rr.Code)
	}

	rr = get(t, h, "/accounts/logout/", cookies)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("logout: expected 303 got %d", rr.Code)
	}
	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("session cookie not cleared on logout")
	}
}

func TestStaleSessionIsDropped(t *testing.T) {
	h, db := newTestServer(t)
	cookies := signup(t, h, "u1", "user")

	// remove the account behind the live session
	if err := db.Exec("DELETE FROM profiles").Error; err != nil {
		t.Fatalf("delete profiles: %v", err)
	}
	if err := db.Exec("DELETE FROM users").Error; err != nil {
		t.Fatalf("delete users: %v", err)
	}

	rr := get(t, h, "/recipes/", cookies)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/accounts/login/" {
		t.Fatalf("expected redirect to login for stale session, got %d %s", rr.Code, rr.Header().Get("Location"))
	}
}

func TestMediaServedFromMediaDir(t *testing.T) {
	h, _ := newTestServer(t)
	rr := get(t, h, "/media/recipes/missing.jpg", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing media got %d", rr.Code)
	}
}
