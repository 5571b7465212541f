package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"github.com/MarcoPoloResearchLab/raduty/internal/roster"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeShiftCasing = "2025-03-01_normalize_shift_casing"
	migrationSeedSampleRoster     = "2025-03-02_seed_sample_roster"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func migrationsFor(options Options) []migrationDefinition {
	migrations := []migrationDefinition{
		{name: migrationNormalizeShiftCasing, apply: normalizeShiftCasing},
	}
	if options.Seed {
		migrations = append(migrations, migrationDefinition{name: migrationSeedSampleRoster, apply: seedSampleRoster})
	}
	return migrations
}

func applyMigrations(db *gorm.DB, migrations []migrationDefinition, logger *zap.Logger) error {
	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Transaction(migration.apply); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeShiftCasing rewrites shift values stored with non-canonical casing.
func normalizeShiftCasing(db *gorm.DB) error {
	for _, shift := range duties.Shifts() {
		err := db.Model(&duties.Duty{}).
			Where("lower(shift) = lower(?) AND shift <> ?", shift.String(), shift.String()).
			Update("shift", shift.String()).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// seedSampleRoster loads the sample RAs and duties when the tables are empty.
func seedSampleRoster(db *gorm.DB) error {
	var raCount int64
	if err := db.Model(&roster.RA{}).Count(&raCount).Error; err != nil {
		return err
	}
	if raCount == 0 {
		ras := []roster.RA{
			{ID: 1, Name: "Alex Smith", Email: "alex.smith@example.edu", Phone: "555-123-4567", Hall: "East Hall", Active: true},
			{ID: 2, Name: "Jordan Lee", Email: "jordan.lee@example.edu", Phone: "555-234-5678", Hall: "West Hall", Active: true},
			{ID: 3, Name: "Taylor Wong", Email: "taylor.wong@example.edu", Phone: "555-345-6789", Hall: "North Hall", Active: true},
			{ID: 4, Name: "Casey Johnson", Email: "casey.johnson@example.edu", Phone: "555-456-7890", Hall: "South Hall", Active: true},
		}
		if err := db.Create(&ras).Error; err != nil {
			return err
		}
	}

	var dutyCount int64
	if err := db.Model(&duties.Duty{}).Count(&dutyCount).Error; err != nil {
		return err
	}
	if dutyCount > 0 {
		return nil
	}
	rows := []duties.Duty{
		{ID: 1, RAID: 1, RAName: "Alex Smith", Date: "2025-03-28", Shift: duties.ShiftSecondary.String(), Notes: "Main entrance duty"},
		{ID: 2, RAID: 2, RAName: "Jordan Lee", Date: "2025-03-29", Shift: duties.ShiftTertiary.String(), Notes: "Weekend patrol"},
		{ID: 3, RAID: 3, RAName: "Taylor Wong", Date: "2025-03-30", Shift: duties.ShiftPrimary.String(), Notes: "Mail room coverage"},
		{ID: 4, RAID: 4, RAName: "Casey Johnson", Date: "2025-04-01", Shift: duties.ShiftSecondary.String(), Notes: "Front desk"},
	}
	return db.Create(&rows).Error
}
