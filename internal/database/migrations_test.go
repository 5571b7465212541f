package database

import (
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"github.com/MarcoPoloResearchLab/raduty/internal/roster"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsNormalizesShiftCasing(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&roster.RA{}, &duties.Duty{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	legacy := duties.Duty{RAName: "Alex Smith", Date: "2025-03-28", Shift: "secondary"}
	if err := database.Create(&legacy).Error; err != nil {
		testContext.Fatalf("failed to insert duty: %v", err)
	}

	if err := applyMigrations(database, migrationsFor(Options{}), zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored duties.Duty
	if err := database.Where("id = ?", legacy.ID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload duty: %v", err)
	}
	if stored.Shift != "Secondary" {
		testContext.Fatalf("expected canonical shift, got %q", stored.Shift)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationNormalizeShiftCasing).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	var seeded int64
	database.Model(&migrationRecord{}).Where("name = ?", migrationSeedSampleRoster).Count(&seeded)
	if seeded != 0 {
		testContext.Fatalf("seed migration must not run when disabled")
	}
}

func TestOpenSQLiteSeedsOnce(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "seed.db")

	database, err := OpenSQLite(databasePath, Options{Seed: true}, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}

	var raCount, dutyCount int64
	database.Model(&roster.RA{}).Count(&raCount)
	database.Model(&duties.Duty{}).Count(&dutyCount)
	if raCount != 4 || dutyCount != 4 {
		testContext.Fatalf("expected 4 RAs and 4 duties, got %d and %d", raCount, dutyCount)
	}

	var first duties.Duty
	if err := database.Where("id = ?", 1).Take(&first).Error; err != nil {
		testContext.Fatalf("failed to load seeded duty: %v", err)
	}
	if first.RAName != "Alex Smith" || first.Date != "2025-03-28" || first.Shift != "Secondary" || first.RAID != 1 {
		testContext.Fatalf("unexpected seeded duty %#v", first)
	}

	if err := database.Where("id = ?", 1).Delete(&duties.Duty{}).Error; err != nil {
		testContext.Fatalf("failed to delete duty: %v", err)
	}
	if err := applyMigrations(database, migrationsFor(Options{Seed: true}), zap.NewNop()); err != nil {
		testContext.Fatalf("failed to reapply migrations: %v", err)
	}
	database.Model(&duties.Duty{}).Count(&dutyCount)
	if dutyCount != 3 {
		testContext.Fatalf("seed must be applied once, got %d duties", dutyCount)
	}
}
