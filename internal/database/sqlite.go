package database

import (
	"fmt"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"github.com/MarcoPoloResearchLab/raduty/internal/roster"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options tunes database initialization.
type Options struct {
	// Seed loads the sample roster and duties into an empty database.
	Seed bool
}

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, options Options, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&roster.RA{}, &duties.Duty{}, &migrationRecord{}); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, migrationsFor(options), logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path), zap.Bool("seed", options.Seed))
	}

	return db, nil
}
