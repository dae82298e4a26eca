package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/diewo77/recipes-app/internal/config"
	"github.com/diewo77/recipes-app/internal/db"
	"github.com/diewo77/recipes-app/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if os.Getenv("APP_ENV") == "development" || os.Getenv("APP_ENV") == "" {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	runSQL := config.ParseBool(log, "MIGRATIONS", false)
	seed := config.ParseBool(log, "DB_SEED", false)

	dbConn, err := db.ConnectAndMigrate(log, cfg.DatabaseDSN, runSQL, seed)
	if err != nil {
		log.Fatal("database setup failed", zap.Error(err))
	}
	if *migrateOnlyFlag {
		log.Info("migrations completed; exiting as requested")
		return
	}

	handler := server.New(dbConn, cfg.MediaDir, log)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: handler}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("error during shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
}
