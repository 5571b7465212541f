package dutycal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/raduty/internal/calendar"
	"github.com/MarcoPoloResearchLab/raduty/internal/dates"
	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"github.com/MarcoPoloResearchLab/raduty/internal/dutysync"
	"github.com/MarcoPoloResearchLab/raduty/internal/roster"
	"go.uber.org/zap"
)

var (
	// ErrNoForm indicates a submit without the matching form open.
	ErrNoForm = errors.New("dutycal: form not open")
	// ErrMissingController indicates an engine built without a sync controller.
	ErrMissingController = errors.New("dutycal: sync controller is required")
)

// RosterSource produces the RA choices offered by the add and edit forms.
type RosterSource interface {
	ListRAs(ctx context.Context) ([]roster.Summary, error)
}

// Config describes the engine dependencies.
type Config struct {
	Controller     *dutysync.Controller
	Roster         RosterSource
	Clock          func() time.Time
	ReloadOnFilter bool
	// Filter is the RA name filter in effect from the first load.
	Filter         string
	Logger         *zap.Logger
}

type gridKey struct {
	revision  uint64
	cursor    calendar.Cursor
	selection calendar.Selection
	filter    string
	today     string
}

// Engine owns the calendar view state: displayed month, selection, filter and the record
// cache behind the sync controller. Its lock is never held across a remote call.
type Engine struct {
	controller     *dutysync.Controller
	store          *dutysync.Store
	roster         RosterSource
	clock          func() time.Time
	reloadOnFilter bool
	logger         *zap.Logger

	mu        sync.Mutex
	cursor    calendar.Cursor
	selection calendar.Selection
	filter    string
	lastErr   error

	gridValid bool
	gridMemo  gridKey
	gridCells []calendar.Cell
}

// New constructs an engine showing the current month.
func New(cfg Config) (*Engine, error) {
	if cfg.Controller == nil {
		return nil, ErrMissingController
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		controller:     cfg.Controller,
		store:          cfg.Controller.Store(),
		roster:         cfg.Roster,
		clock:          clock,
		reloadOnFilter: cfg.ReloadOnFilter,
		logger:         logger,
		cursor:         calendar.CursorFor(clock()),
		filter:         cfg.Filter,
	}, nil
}

// Mount performs the initial load.
func (e *Engine) Mount(ctx context.Context) error {
	return e.reload(ctx)
}

// ExternalChange reloads after another view reported that the duty set changed.
func (e *Engine) ExternalChange(ctx context.Context) error {
	return e.reload(ctx)
}

// OnDutyChanged registers a listener for successful mutations made through this engine.
func (e *Engine) OnDutyChanged(listener func(dutysync.DutyChange)) func() {
	return e.controller.OnDutyChanged(listener)
}

// Cursor returns the displayed month.
func (e *Engine) Cursor() calendar.Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Selection returns a copy of the selection state.
func (e *Engine) Selection() calendar.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection
}

// Filter returns the active RA name filter.
func (e *Engine) Filter() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// Prev shows the previous month.
func (e *Engine) Prev() {
	e.navigate(func(cursor calendar.Cursor) calendar.Cursor { return cursor.Prev() })
}

// Next shows the following month.
func (e *Engine) Next() {
	e.navigate(func(cursor calendar.Cursor) calendar.Cursor { return cursor.Next() })
}

// Today shows the current month.
func (e *Engine) Today() {
	today := calendar.CursorFor(e.clock())
	e.navigate(func(calendar.Cursor) calendar.Cursor { return today })
}

// Show displays cursor.
func (e *Engine) Show(cursor calendar.Cursor) {
	e.navigate(func(calendar.Cursor) calendar.Cursor { return cursor })
}

func (e *Engine) navigate(move func(calendar.Cursor) calendar.Cursor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursor = move(e.cursor)
	e.selection.Reset()
}

// Grid returns the cells of the displayed month. The result is reused until the records,
// month, selection, filter or current date change; callers must not modify it.
func (e *Engine) Grid() []calendar.Cell {
	e.mu.Lock()
	defer e.mu.Unlock()
	today := e.clock()
	key := gridKey{
		revision:  e.store.Revision(),
		cursor:    e.cursor,
		selection: e.selection,
		filter:    e.filter,
		today:     dates.KeyOf(today),
	}
	if e.gridValid && e.gridMemo == key {
		return e.gridCells
	}
	e.gridCells = calendar.Build(e.cursor, calendar.Visible(e.store.All(), e.filter), e.selection, today)
	e.gridMemo = key
	e.gridValid = true
	return e.gridCells
}

// ListView returns the visible records in store order.
func (e *Engine) ListView() []duties.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return calendar.Visible(e.store.All(), e.filter)
}

// DayRecords returns the visible records of a day in the displayed month.
func (e *Engine) DayRecords(day int) []duties.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.cursor.ValidDay(day) {
		return nil
	}
	return e.recordsOnLocked(e.cursor.Key(day))
}

// ClickDay opens the day detail for a day with visible records and the add form otherwise.
func (e *Engine) ClickDay(day int) (calendar.OverlayKind, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var visible []duties.Record
	if e.cursor.ValidDay(day) {
		visible = e.recordsOnLocked(e.cursor.Key(day))
	}
	return e.selection.ClickDay(e.cursor, day, visible)
}

// OpenAdd opens the add form.
func (e *Engine) OpenAdd() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.OpenAdd()
}

// OpenEdit opens the edit form for a stored record.
func (e *Engine) OpenEdit(id duties.DutyID) error {
	if _, ok := e.store.Get(id); !ok {
		return fmt.Errorf("%w: %s", dutysync.ErrUnknownRecord, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.OpenEdit(id)
}

// Close dismisses the open overlay. An in-flight save still completes.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection.Close()
}

// CancelEdit closes the edit form as if its save had completed.
func (e *Engine) CancelEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.selection.EditingID(); ok {
		e.selection.FinishEdit(id, len(e.recordsOnLocked(e.selection.SelectedKey())))
	}
}

// AddDraft returns the initial contents of the add form.
func (e *Engine) AddDraft() duties.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return duties.Draft{Date: e.selection.AddDate(), Shift: duties.DefaultShift}
}

// EditRecord returns the record loaded into the edit form.
func (e *Engine) EditRecord() (duties.Record, bool) {
	e.mu.Lock()
	id, ok := e.selection.EditingID()
	e.mu.Unlock()
	if !ok {
		return duties.Record{}, false
	}
	return e.store.Get(id)
}

// SubmitAdd creates a duty from the add form. The form closes on success and stays open
// on validation or sync failure.
func (e *Engine) SubmitAdd(ctx context.Context, draft duties.Draft) (duties.Record, error) {
	e.mu.Lock()
	form := e.selection.FormID()
	open := e.selection.Overlay() == calendar.OverlayAddForm
	e.mu.Unlock()
	if !open {
		return duties.Record{}, ErrNoForm
	}

	created, err := e.controller.Create(ctx, draft)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.recordErrLocked(err)
		return duties.Record{}, err
	}
	// a form opened while the call was in flight stays open.
	e.selection.FinishAdd(form)
	return created, nil
}

// SubmitEdit saves the edit form. The form stays open on a validation failure and closes once
// the save completes either way, returning to the day detail when it came from there.
func (e *Engine) SubmitEdit(ctx context.Context, patch duties.Patch) (duties.Record, error) {
	e.mu.Lock()
	id, ok := e.selection.EditingID()
	e.mu.Unlock()
	if !ok {
		return duties.Record{}, ErrNoForm
	}

	updated, err := e.controller.Update(ctx, id, patch)
	e.mu.Lock()
	defer e.mu.Unlock()
	if errors.Is(err, duties.ErrValidation) {
		return duties.Record{}, err
	}
	e.selection.FinishEdit(id, len(e.recordsOnLocked(e.selection.SelectedKey())))
	e.refreshSelectionLocked()
	if err != nil {
		e.recordErrLocked(err)
		return duties.Record{}, err
	}
	return updated, nil
}

// Delete removes a duty after confirmation and closes whatever overlay depended on it.
func (e *Engine) Delete(ctx context.Context, id duties.DutyID, confirmer dutysync.Confirmer) error {
	err := e.controller.Delete(ctx, id, confirmer)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		if !errors.Is(err, dutysync.ErrDeleteNotConfirmed) {
			e.recordErrLocked(err)
		}
		return err
	}
	e.selection.FinishEdit(id, len(e.recordsOnLocked(e.selection.SelectedKey())))
	e.refreshSelectionLocked()
	return nil
}

// SetFilter changes the RA name filter and, when configured, reloads with it server-side.
func (e *Engine) SetFilter(ctx context.Context, filterText string) error {
	e.mu.Lock()
	changed := e.filter != filterText
	e.filter = filterText
	e.refreshSelectionLocked()
	e.mu.Unlock()
	if !changed || !e.reloadOnFilter {
		return nil
	}
	return e.reload(ctx)
}

// RAChoices returns the active roster for the assignment picker.
func (e *Engine) RAChoices(ctx context.Context) ([]roster.Summary, error) {
	if e.roster == nil {
		return nil, nil
	}
	return e.roster.ListRAs(ctx)
}

// LastError returns the most recent sync failure until it is dismissed.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// DismissError clears the last sync failure.
func (e *Engine) DismissError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = nil
}

func (e *Engine) reload(ctx context.Context) error {
	filter := ""
	if e.reloadOnFilter {
		filter = e.Filter()
	}
	err := e.controller.Reload(ctx, filter)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.recordErrLocked(err)
		return err
	}
	e.refreshSelectionLocked()
	return nil
}

func (e *Engine) recordsOnLocked(key string) []duties.Record {
	if key == "" {
		return nil
	}
	return calendar.OnDate(calendar.Visible(e.store.All(), e.filter), key)
}

func (e *Engine) refreshSelectionLocked() {
	e.selection.RecordsChanged(len(e.recordsOnLocked(e.selection.SelectedKey())))
}

func (e *Engine) recordErrLocked(err error) {
	var syncErr *dutysync.SyncError
	if !errors.As(err, &syncErr) {
		return
	}
	e.lastErr = err
	e.logger.Warn("calendar sync error", zap.String("operation", string(syncErr.Op)), zap.Error(err))
}
