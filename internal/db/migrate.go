package db

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/diewo77/recipes-app/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// blank imports register the postgres driver and file source for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteDevDSN = "file:recipes.db?_foreign_keys=on"

// ConnectAndMigrate opens the database and brings the schema up to date.
// A postgres DSN gets golang-migrate SQL migrations when MIGRATIONS=1|true,
// AutoMigrate otherwise. An empty DSN falls back to a local sqlite file for
// development.
func ConnectAndMigrate(log *zap.Logger, rawDSN string, runSQL bool, seedData bool) (*gorm.DB, error) {
	dsn := NormalizeDSN(rawDSN)
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true}

	var gdb *gorm.DB
	var err error
	if dsn == "" {
		log.Warn("DATABASE_DSN empty, using sqlite dev fallback", zap.String("dsn", sqliteDevDSN))
		gdb, err = gorm.Open(sqlite.Open(sqliteDevDSN), cfg)
	} else if IsPostgresDSN(dsn) {
		for i := 0; i < 10; i++ {
			gdb, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			log.Warn("retrying DB connection", zap.Error(err))
			time.Sleep(2 * time.Second)
		}
	} else {
		gdb, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if pingErr := gdb.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.Info("database connected", zap.String("dsn", maskDSN(dsn)))

	if runSQL && IsPostgresDSN(dsn) {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		// FK targets before dependents
		modelsToMigrate := []interface{}{
			&models.User{}, &models.Profile{}, &models.Category{}, &models.Recipe{}, &models.Review{},
		}
		for _, m := range modelsToMigrate {
			if migErr := gdb.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	for _, table := range []string{"users", "profiles", "categories", "recipes", "reviews"} {
		if !gdb.Migrator().HasTable(table) {
			return nil, fmt.Errorf("missing table after migration: %s", table)
		}
	}

	if seedData {
		seed(gdb)
	}
	return gdb, nil
}

// seed inserts baseline categories, idempotently.
func seed(gdb *gorm.DB) {
	baseCategories := []models.Category{
		{Name: "Entrées"},
		{Name: "Plats"},
		{Name: "Desserts"},
	}
	for _, c := range baseCategories {
		var existing models.Category
		if err := gdb.Where("name = ?", c.Name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			gdb.Create(&c)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using the file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func maskDSN(dsn string) string {
	if strings.Contains(dsn, "password=") {
		return passwordRegex.ReplaceAllString(dsn, `${1}***`)
	}
	return dsn
}

var passwordRegex = regexp.MustCompile(`(password=)([^\s]+)`)
