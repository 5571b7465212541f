package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the RA id is unknown.
	ErrNotFound = errors.New("roster: ra not found")
	// ErrNameRequired indicates an empty RA name.
	ErrNameRequired = errors.New("roster: ra name is required")
)

// DeleteOutcome reports how an RA was removed.
type DeleteOutcome string

const (
	// DeleteOutcomeRemoved means the RA had no duties and was deleted.
	DeleteOutcomeRemoved DeleteOutcome = "deleted"
	// DeleteOutcomeDeactivated means duties still reference the RA, so it was marked inactive.
	DeleteOutcomeDeactivated DeleteOutcome = "deactivated"
)

// ServiceConfig describes the dependencies required for roster management.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service manages the RA roster and resolves duty names onto roster ids.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	cache  sync.Map
}

// NewService constructs the roster service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("roster: database connection required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:     cfg.Database,
		logger: logger,
		cache:  sync.Map{},
	}, nil
}

// List returns RAs ordered by name; inactive RAs are included only on request.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]RA, error) {
	statement := s.db.WithContext(ctx).Order("name ASC, id ASC")
	if !includeInactive {
		statement = statement.Where("active = ?", true)
	}
	var ras []RA
	if err := statement.Find(&ras).Error; err != nil {
		return nil, err
	}
	return ras, nil
}

// Get returns a single RA.
func (s *Service) Get(ctx context.Context, id int64) (RA, error) {
	var ra RA
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&ra).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RA{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return RA{}, err
	}
	return ra, nil
}

// Create adds an RA to the roster. New RAs are active unless stated otherwise.
func (s *Service) Create(ctx context.Context, profile Profile) (RA, error) {
	name := normalize(profile.Name)
	if name == "" {
		return RA{}, ErrNameRequired
	}
	ra := RA{
		Name:   name,
		Email:  normalize(profile.Email),
		Phone:  normalize(profile.Phone),
		Hall:   normalize(profile.Hall),
		Active: true,
	}
	if err := s.db.WithContext(ctx).Create(&ra).Error; err != nil {
		return RA{}, err
	}
	// A false Active is a zero value, so gorm would apply the column default on insert.
	if profile.Active != nil && !*profile.Active {
		if err := s.db.WithContext(ctx).Model(&RA{}).Where("id = ?", ra.ID).Update("active", false).Error; err != nil {
			return RA{}, err
		}
		ra.Active = false
	}
	s.cache.Delete(name)
	return ra, nil
}

// Update rewrites an RA and cascades a rename into the duties that reference it.
func (s *Service) Update(ctx context.Context, id int64, profile Profile) (RA, error) {
	name := normalize(profile.Name)
	if name == "" {
		return RA{}, ErrNameRequired
	}

	var updated RA
	var previousName string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing RA
		err := tx.Where("id = ?", id).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		previousName = existing.Name

		existing.Name = name
		existing.Email = normalize(profile.Email)
		existing.Phone = normalize(profile.Phone)
		existing.Hall = normalize(profile.Hall)
		if profile.Active != nil {
			existing.Active = *profile.Active
		}
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		if err := tx.Model(&duties.Duty{}).Where("ra_id = ?", id).Update("ra_name", name).Error; err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return RA{}, err
	}

	s.cache.Delete(previousName)
	s.cache.Delete(name)
	if previousName != name {
		s.logger.Info("ra renamed", zap.Int64("ra_id", id), zap.String("from", previousName), zap.String("to", name))
	}
	return updated, nil
}

// Delete hard-deletes an RA without duties and deactivates one that still has duties.
func (s *Service) Delete(ctx context.Context, id int64) (DeleteOutcome, error) {
	var outcome DeleteOutcome
	var name string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing RA
		err := tx.Where("id = ?", id).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		name = existing.Name

		var dutyCount int64
		if err := tx.Model(&duties.Duty{}).Where("ra_id = ?", id).Count(&dutyCount).Error; err != nil {
			return err
		}
		if dutyCount > 0 {
			outcome = DeleteOutcomeDeactivated
			return tx.Model(&RA{}).Where("id = ?", id).Update("active", false).Error
		}
		outcome = DeleteOutcomeRemoved
		return tx.Where("id = ?", id).Delete(&RA{}).Error
	})
	if err != nil {
		return "", err
	}
	s.cache.Delete(name)
	return outcome, nil
}

// ResolveRAID returns the roster id for an exact RA name, or 0 when the name is unknown.
func (s *Service) ResolveRAID(ctx context.Context, name string) (int64, error) {
	key := normalize(name)
	if key == "" {
		return 0, nil
	}
	if cached, ok := s.cache.Load(key); ok {
		if id, ok := cached.(int64); ok {
			return id, nil
		}
	}

	var ra RA
	err := s.db.WithContext(ctx).Where("name = ?", key).Order("id ASC").Take(&ra).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	s.cache.Store(key, ra.ID)
	return ra.ID, nil
}
