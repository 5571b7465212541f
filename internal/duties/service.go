package duties

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MarcoPoloResearchLab/raduty/internal/dates"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries a stable "<operation>.<reason>" code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "duties.service.new"
	opList       = "duties.list"
	opGet        = "duties.get"
	opCreate     = "duties.create"
	opUpdate     = "duties.update"
	opDelete     = "duties.delete"

	reasonMissingDatabase = "missing_database"
	reasonInvalidDraft    = "invalid_draft"
	reasonInvalidRange    = "invalid_range"
	reasonNotFound        = "not_found"
	reasonQueryFailed     = "query_failed"
	reasonResolveFailed   = "ra_resolve_failed"
	reasonSaveFailed      = "save_failed"

	columnID   = "id"
	queryByID  = columnID + " = ?"
	orderByDay = "date ASC, id ASC"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// RAResolver maps an RA display name onto a roster id; 0 means unknown.
type RAResolver interface {
	ResolveRAID(ctx context.Context, name string) (int64, error)
}

type ServiceConfig struct {
	Database *gorm.DB
	Roster   RAResolver
	Logger   *zap.Logger
}

// Service is the remote duty store backing the HTTP API.
type Service struct {
	db     *gorm.DB
	roster RAResolver
	logger *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:     cfg.Database,
		roster: cfg.Roster,
		logger: logger,
	}, nil
}

// ListQuery narrows a listing. Empty fields do not filter.
type ListQuery struct {
	RAName    string
	StartDate string
	EndDate   string
}

// List returns duties ordered by date, filtered by RA name substring and inclusive date range.
func (s *Service) List(ctx context.Context, query ListQuery) ([]Duty, error) {
	if s.db == nil {
		s.logError(opList, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opList, reasonMissingDatabase, errMissingDatabase)
	}

	statement := s.db.WithContext(ctx).Model(&Duty{})
	name := strings.TrimSpace(query.RAName)
	// SQLite folds case for ASCII only; other names are matched after the query.
	nameInQuery := name != "" && isASCII(name)
	if nameInQuery {
		statement = statement.Where(`ra_name LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(name)+"%")
	}
	for _, bound := range []struct {
		value  string
		clause string
	}{
		{value: query.StartDate, clause: "date >= ?"},
		{value: query.EndDate, clause: "date <= ?"},
	} {
		value := strings.TrimSpace(bound.value)
		if value == "" {
			continue
		}
		if !dates.ValidKey(value) {
			return nil, newServiceError(opList, reasonInvalidRange, fmt.Errorf("%w: %q", dates.ErrInvalidKey, value))
		}
		statement = statement.Where(bound.clause, value)
	}

	var rows []Duty
	if err := statement.Order(orderByDay).Find(&rows).Error; err != nil {
		s.logError(opList, reasonQueryFailed, err, zap.String("ra", query.RAName))
		return nil, newServiceError(opList, reasonQueryFailed, err)
	}
	if name != "" && !nameInQuery {
		rows = filterByName(rows, name)
	}
	return rows, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func isASCII(value string) bool {
	for index := 0; index < len(value); index++ {
		if value[index] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func filterByName(rows []Duty, name string) []Duty {
	needle := strings.ToLower(name)
	kept := rows[:0]
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.RAName), needle) {
			kept = append(kept, row)
		}
	}
	return kept
}

// Get returns a single duty or an error wrapping ErrNotFound.
func (s *Service) Get(ctx context.Context, id DutyID) (Duty, error) {
	if s.db == nil {
		s.logError(opGet, reasonMissingDatabase, errMissingDatabase)
		return Duty{}, newServiceError(opGet, reasonMissingDatabase, errMissingDatabase)
	}
	return s.load(s.db.WithContext(ctx), opGet, id)
}

// Create validates and persists a new duty, resolving the RA id from the roster.
func (s *Service) Create(ctx context.Context, draft Draft) (Duty, error) {
	if s.db == nil {
		s.logError(opCreate, reasonMissingDatabase, errMissingDatabase)
		return Duty{}, newServiceError(opCreate, reasonMissingDatabase, errMissingDatabase)
	}
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return Duty{}, newServiceError(opCreate, reasonInvalidDraft, err)
	}

	raID, err := s.resolveRAID(ctx, draft.RAName)
	if err != nil {
		s.logError(opCreate, reasonResolveFailed, err, zap.String("ra_name", draft.RAName))
		return Duty{}, newServiceError(opCreate, reasonResolveFailed, err)
	}

	row := Duty{
		RAID:   raID,
		RAName: draft.RAName,
		Date:   draft.Date,
		Shift:  draft.Shift.String(),
		Notes:  draft.Notes,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logError(opCreate, reasonSaveFailed, err, zap.String("ra_name", draft.RAName))
		return Duty{}, newServiceError(opCreate, reasonSaveFailed, err)
	}
	return row, nil
}

// Update rewrites every editable field of an existing duty.
func (s *Service) Update(ctx context.Context, id DutyID, draft Draft) (Duty, error) {
	if s.db == nil {
		s.logError(opUpdate, reasonMissingDatabase, errMissingDatabase)
		return Duty{}, newServiceError(opUpdate, reasonMissingDatabase, errMissingDatabase)
	}
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return Duty{}, newServiceError(opUpdate, reasonInvalidDraft, err)
	}

	raID, err := s.resolveRAID(ctx, draft.RAName)
	if err != nil {
		s.logError(opUpdate, reasonResolveFailed, err, zap.String("ra_name", draft.RAName))
		return Duty{}, newServiceError(opUpdate, reasonResolveFailed, err)
	}

	var updated Duty
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.load(tx, opUpdate, id)
		if err != nil {
			return err
		}
		existing.RAID = raID
		existing.RAName = draft.RAName
		existing.Date = draft.Date
		existing.Shift = draft.Shift.String()
		existing.Notes = draft.Notes
		if err := tx.Save(&existing).Error; err != nil {
			s.logError(opUpdate, reasonSaveFailed, err, zap.Int64("duty_id", int64(id)))
			return newServiceError(opUpdate, reasonSaveFailed, err)
		}
		updated = existing
		return nil
	})
	if txErr != nil {
		return Duty{}, txErr
	}
	return updated, nil
}

// Delete removes a duty. Missing ids report ErrNotFound.
func (s *Service) Delete(ctx context.Context, id DutyID) error {
	if s.db == nil {
		s.logError(opDelete, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(opDelete, reasonMissingDatabase, errMissingDatabase)
	}
	result := s.db.WithContext(ctx).Where(queryByID, int64(id)).Delete(&Duty{})
	if result.Error != nil {
		s.logError(opDelete, reasonSaveFailed, result.Error, zap.Int64("duty_id", int64(id)))
		return newServiceError(opDelete, reasonSaveFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDelete, reasonNotFound, fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	return nil
}

func (s *Service) load(db *gorm.DB, operation string, id DutyID) (Duty, error) {
	var row Duty
	err := db.Where(queryByID, int64(id)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Duty{}, newServiceError(operation, reasonNotFound, fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	if err != nil {
		s.logError(operation, reasonQueryFailed, err, zap.Int64("duty_id", int64(id)))
		return Duty{}, newServiceError(operation, reasonQueryFailed, err)
	}
	return row, nil
}

func (s *Service) resolveRAID(ctx context.Context, name string) (int64, error) {
	if s.roster == nil {
		return 0, nil
	}
	return s.roster.ResolveRAID(ctx, name)
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("duties service error", attrs...)
}
