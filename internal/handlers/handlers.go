// Package handlers translates HTTP requests into store operations, applying
// the permission policy and returning redirects, rendered pages or errors.
// Handlers speak HTML forms by default and JSON when the client asks for it.
package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/diewo77/recipes-app/auth"
	"github.com/diewo77/recipes-app/httpx"
	"github.com/diewo77/recipes-app/internal/models"
	"github.com/diewo77/recipes-app/internal/services"
)

const flashCookieName = "flash"

// currentUser resolves the authenticated user (with profile) from the
// session context. Returns nil for anonymous requests.
func currentUser(r *http.Request, accounts *services.AccountService) *models.User {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok || uid == 0 {
		return nil
	}
	user, err := accounts.Get(r.Context(), uid)
	if err != nil {
		return nil
	}
	return user
}

// setFlash stores a one-shot message cookie read back on the next page view.
func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: url.QueryEscape(msg), Path: "/"})
}

// popFlash reads and clears the flash cookie.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", Expires: time.Unix(0, 0), MaxAge: -1})
	if dec, derr := url.QueryUnescape(c.Value); derr == nil {
		return dec
	}
	return c.Value
}

// writeError renders an error for either client kind. Plain text for
// browsers keeps Forbidden/NotFound pages unambiguous in tests and curl.
func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, status, msg, nil)
		return
	}
	http.Error(w, msg, status)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (uint, bool) {
	id64, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}
