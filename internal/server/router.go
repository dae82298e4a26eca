package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/recipes-app/auth"
	"github.com/diewo77/recipes-app/httpx"
	"github.com/diewo77/recipes-app/internal/handlers"
	"github.com/diewo77/recipes-app/internal/models"
	"github.com/diewo77/recipes-app/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, mediaDir string, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth drops sessions whose user no longer exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	accounts := services.NewAccountService(db)
	catalog := services.NewCatalogService(db)
	reviews := services.NewReviewService(db)

	ah := handlers.NewAccountHandler(accounts)
	ah.Register(mux)

	rh := handlers.NewRecipeHandler(catalog, reviews, accounts, mediaDir, log)

	requireAuth := func(h http.HandlerFunc) http.Handler { return auth.RequireAuth(h) }

	// Public pages
	mux.HandleFunc("/{$}", rh.Landing)
	mux.HandleFunc("GET /{id}/{$}", rh.Detail)

	// Authenticated pages. The policy inside the handlers decides 403;
	// RequireAuth only decides redirect-to-login.
	mux.Handle("GET /recipes/{$}", requireAuth(rh.List))
	mux.Handle("GET /add/{$}", requireAuth(rh.Add))
	mux.Handle("POST /add/{$}", requireAuth(rh.Add))
	mux.Handle("GET /{id}/edit/{$}", requireAuth(rh.Edit))
	mux.Handle("POST /{id}/edit/{$}", requireAuth(rh.Edit))
	mux.Handle("POST /{id}/delete/{$}", requireAuth(rh.Delete))
	mux.Handle("GET /{id}/review/{$}", requireAuth(rh.Review))
	mux.Handle("POST /{id}/review/{$}", requireAuth(rh.Review))

	// Static assets and uploaded media are served before the mux: subtree
	// patterns would conflict with the top-level /{id}/ wildcard.
	staticFS := http.StripPrefix("/static/", http.FileServer(http.Dir("static")))
	mediaFS := http.StripPrefix("/media/", http.FileServer(http.Dir(mediaDir)))
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/static/"):
			staticFS.ServeHTTP(w, r)
		case strings.HasPrefix(r.URL.Path, "/media/"):
			mediaFS.ServeHTTP(w, r)
		default:
			mux.ServeHTTP(w, r)
		}
	})

	return auth.Middleware(withRecover(withLogging(log, root), log))
}

func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func withRecover(next http.Handler, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
