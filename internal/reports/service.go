package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/raduty/internal/dates"
	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInvalidRange indicates a malformed report date bound.
	ErrInvalidRange = errors.New("reports: invalid date range")
	// ErrInvalidYear indicates a year outside 1..9999.
	ErrInvalidYear = errors.New("reports: invalid year")
)

const shiftCounts = "COUNT(*) AS total_duties, " +
	"SUM(CASE WHEN shift = ? THEN 1 ELSE 0 END) AS primary_count, " +
	"SUM(CASE WHEN shift = ? THEN 1 ELSE 0 END) AS secondary_count, " +
	"SUM(CASE WHEN shift = ? THEN 1 ELSE 0 END) AS tertiary_count"

// ShiftTotals counts duties per shift.
type ShiftTotals struct {
	TotalDuties    int64 `json:"total_duties" gorm:"column:total_duties"`
	PrimaryCount   int64 `json:"primary_count" gorm:"column:primary_count"`
	SecondaryCount int64 `json:"secondary_count" gorm:"column:secondary_count"`
	TertiaryCount  int64 `json:"tertiary_count" gorm:"column:tertiary_count"`
}

// RATotals is one row of the per-RA duty report.
type RATotals struct {
	RAName string `json:"ra_name" gorm:"column:ra_name"`
	ShiftTotals
}

// MonthTotals is one row of the monthly summary; Month is the two-digit month.
type MonthTotals struct {
	Month string `json:"month" gorm:"column:month"`
	ShiftTotals
}

// Range bounds a report by inclusive date keys; empty bounds are open.
type Range struct {
	StartDate string
	EndDate   string
}

// ServiceConfig describes the report dependencies.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service aggregates stored duties into read-only reports.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the report service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("reports: database connection required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// RADuties totals duties per RA name, busiest first.
func (s *Service) RADuties(ctx context.Context, bounds Range) ([]RATotals, error) {
	statement := s.db.WithContext(ctx).Model(&duties.Duty{}).
		Select("ra_name, "+shiftCounts, shiftArgs()...)
	for _, bound := range []struct {
		value  string
		clause string
	}{
		{value: bounds.StartDate, clause: "date >= ?"},
		{value: bounds.EndDate, clause: "date <= ?"},
	} {
		value := strings.TrimSpace(bound.value)
		if value == "" {
			continue
		}
		if !dates.ValidKey(value) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, value)
		}
		statement = statement.Where(bound.clause, value)
	}

	var rows []RATotals
	if err := statement.Group("ra_name").Order("total_duties DESC, ra_name ASC").Scan(&rows).Error; err != nil {
		s.logger.Error("ra duty report failed", zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// MonthlySummary totals the duties of each month in year that has any.
func (s *Service) MonthlySummary(ctx context.Context, year int) ([]MonthTotals, error) {
	if year < 1 || year > 9999 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	var rows []MonthTotals
	err := s.db.WithContext(ctx).Model(&duties.Duty{}).
		Select("substr(date, 6, 2) AS month, "+shiftCounts, shiftArgs()...).
		Where("substr(date, 1, 4) = ?", fmt.Sprintf("%04d", year)).
		Group("month").
		Order("month ASC").
		Scan(&rows).Error
	if err != nil {
		s.logger.Error("monthly summary failed", zap.Int("year", year), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

func shiftArgs() []interface{} {
	return []interface{}{
		duties.ShiftPrimary.String(),
		duties.ShiftSecondary.String(),
		duties.ShiftTertiary.String(),
	}
}
