package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ndemidenko/pressroom/internal/config"
	"github.com/ndemidenko/pressroom/internal/models"
)

func configurePool(sqlDB *sql.DB) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	configurePool(sqlDB)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return db, nil
}

// Init migrates the schema and seeds the fixed reference rows. It is
// idempotent and safe under concurrent startup of several processes:
// migration uses if-not-exists semantics and the seeds insert-if-absent.
func Init(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.PostTag{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// Role ids follow the configured order, highest privilege first.
	for i, name := range cfg.SeedRoles {
		var role models.Role
		if err := db.WithContext(ctx).
			Where(models.Role{Name: name}).
			Attrs(models.Role{ID: uint(i + 1)}).
			FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %q: %w", name, err)
		}
	}

	for _, name := range cfg.SeedCategories {
		var category models.Category
		if err := db.WithContext(ctx).
			Where("LOWER(name) = LOWER(?)", name).
			Attrs(models.Category{Name: name}).
			FirstOrCreate(&category).Error; err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}

	return nil
}
