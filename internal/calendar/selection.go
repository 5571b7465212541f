package calendar

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
)

var (
	// ErrFormOpen indicates a day click while an add or edit form is open.
	ErrFormOpen = errors.New("calendar: a form is already open")
	// ErrEditInProgress indicates an attempt to edit a second record while one edit form is open.
	ErrEditInProgress = errors.New("calendar: another record is being edited")
	// ErrInvalidDay indicates a day outside the displayed month.
	ErrInvalidDay = errors.New("calendar: day outside month")
	// ErrInvalidRecord indicates an edit request without a persisted record id.
	ErrInvalidRecord = errors.New("calendar: record id required")
)

// OverlayKind names the overlay currently shown above the grid.
type OverlayKind uint8

const (
	OverlayNone OverlayKind = iota
	OverlayDayDetail
	OverlayAddForm
	OverlayEditForm
)

func (k OverlayKind) String() string {
	switch k {
	case OverlayNone:
		return "none"
	case OverlayDayDetail:
		return "day_detail"
	case OverlayAddForm:
		return "add_form"
	case OverlayEditForm:
		return "edit_form"
	default:
		return fmt.Sprintf("overlay(%d)", uint8(k))
	}
}

// IsForm reports whether the overlay is an add or edit form.
func (k OverlayKind) IsForm() bool {
	return k == OverlayAddForm || k == OverlayEditForm
}

// Selection tracks the selected day and the overlay opened from it.
// The zero value is Idle with no selected day.
type Selection struct {
	month      Cursor
	day        int
	overlay    OverlayKind
	editingID  duties.DutyID
	addDate    string
	fromDetail bool
	form       uint64
}

// SelectedDay returns the selected day and the month it belongs to.
func (s Selection) SelectedDay() (Cursor, int, bool) {
	if s.day == 0 {
		return Cursor{}, 0, false
	}
	return s.month, s.day, true
}

// SelectedKey returns the date key of the selected day, or "" when none is selected.
func (s Selection) SelectedKey() string {
	if s.day == 0 {
		return ""
	}
	return s.month.Key(s.day)
}

// Overlay returns the open overlay.
func (s Selection) Overlay() OverlayKind {
	return s.overlay
}

// EditingID returns the record in the edit form.
func (s Selection) EditingID() (duties.DutyID, bool) {
	if s.overlay != OverlayEditForm {
		return 0, false
	}
	return s.editingID, true
}

// AddDate returns the date the add form was opened for, or "".
func (s Selection) AddDate() string {
	if s.overlay != OverlayAddForm {
		return ""
	}
	return s.addDate
}

// FormID identifies the open form; every form opening gets a new id. It is 0 when no form is open.
func (s Selection) FormID() uint64 {
	if !s.overlay.IsForm() {
		return 0
	}
	return s.form
}

// IsSelected reports whether day in cursor is the selected day.
// A selection made in another month never matches.
func (s Selection) IsSelected(cursor Cursor, day int) bool {
	return s.day != 0 && s.day == day && s.month == cursor
}

// ClickDay is the single entry point deciding between the day detail (the day has visible
// records) and the add form pre-filled with the day's date (it has none).
func (s *Selection) ClickDay(cursor Cursor, day int, visible []duties.Record) (OverlayKind, error) {
	if s.overlay.IsForm() {
		return s.overlay, ErrFormOpen
	}
	if !cursor.ValidDay(day) {
		return s.overlay, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	s.month = cursor
	s.day = day
	s.editingID = 0
	s.fromDetail = false
	if len(visible) > 0 {
		s.overlay = OverlayDayDetail
		s.addDate = ""
		return s.overlay, nil
	}
	s.overlay = OverlayAddForm
	s.addDate = cursor.Key(day)
	s.form++
	return s.overlay, nil
}

// OpenAdd opens the add form. From the day detail it is pre-filled with the selected day.
func (s *Selection) OpenAdd() error {
	if s.overlay == OverlayEditForm {
		return ErrEditInProgress
	}
	if s.overlay == OverlayAddForm {
		return nil
	}
	s.addDate = ""
	if s.overlay == OverlayDayDetail {
		s.addDate = s.SelectedKey()
	}
	s.overlay = OverlayAddForm
	s.editingID = 0
	s.fromDetail = false
	s.form++
	return nil
}

// OpenEdit opens the edit form for id. Only one record may be edited at a time.
func (s *Selection) OpenEdit(id duties.DutyID) error {
	if id.IsZero() {
		return ErrInvalidRecord
	}
	if s.overlay == OverlayEditForm {
		if s.editingID == id {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrEditInProgress, s.editingID)
	}
	s.fromDetail = s.overlay == OverlayDayDetail
	s.overlay = OverlayEditForm
	s.editingID = id
	s.addDate = ""
	s.form++
	return nil
}

// Close dismisses any overlay. The selected day is kept.
func (s *Selection) Close() {
	s.overlay = OverlayNone
	s.editingID = 0
	s.addDate = ""
	s.fromDetail = false
}

// FinishEdit closes the edit form for id once its save or cancel completes. It returns to the
// day detail when the form was opened from there and the day still has dayRecords visible.
// It reports false and changes nothing when the form for id is no longer open.
func (s *Selection) FinishEdit(id duties.DutyID, dayRecords int) bool {
	if s.overlay != OverlayEditForm || s.editingID != id {
		return false
	}
	back := s.fromDetail && s.day != 0 && dayRecords > 0
	s.Close()
	if back {
		s.overlay = OverlayDayDetail
	}
	return true
}

// FinishAdd closes the add form identified by form once its create succeeds.
// It reports false and changes nothing when that form is no longer open.
func (s *Selection) FinishAdd(form uint64) bool {
	if s.overlay != OverlayAddForm || form == 0 || s.form != form {
		return false
	}
	s.Close()
	return true
}

// RecordsChanged closes the day detail when its day has no visible records left.
func (s *Selection) RecordsChanged(dayRecords int) {
	if s.overlay == OverlayDayDetail && dayRecords == 0 {
		s.Close()
	}
}

// Reset clears the selection and any overlay.
func (s *Selection) Reset() {
	*s = Selection{form: s.form}
}
