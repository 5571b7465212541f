package duties

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/raduty/internal/dates"
)

// Shift enumerates the duty shift classifications.
type Shift string

const (
	// ShiftPrimary is the first-call shift.
	ShiftPrimary Shift = "Primary"
	// ShiftSecondary is the backup shift and the default for new duties.
	ShiftSecondary Shift = "Secondary"
	// ShiftTertiary is the third-call shift.
	ShiftTertiary Shift = "Tertiary"
)

// DefaultShift is preselected for new drafts.
const DefaultShift = ShiftSecondary

// Validation field names, matching the wire payload.
const (
	FieldID     = "id"
	FieldRAName = "ra_name"
	FieldDate   = "date"
	FieldShift  = "shift"
)

const maxNameLength = 190

var (
	// ErrNotFound indicates that a duty id is not present in the store.
	ErrNotFound = errors.New("duties: duty not found")
	// ErrInvalidDutyID indicates that a duty identifier is not a positive integer.
	ErrInvalidDutyID = errors.New("duties: invalid duty id")
	// ErrInvalidShift indicates that a shift value is outside the enumeration.
	ErrInvalidShift = errors.New("duties: invalid shift")
	// ErrValidation matches every *ValidationError through errors.Is.
	ErrValidation = errors.New("duties: validation failed")
)

// Shifts returns the enumeration in display order.
func Shifts() []Shift {
	return []Shift{ShiftPrimary, ShiftSecondary, ShiftTertiary}
}

// ParseShift validates raw input case-insensitively and returns the canonical Shift.
func ParseShift(rawInput string) (Shift, error) {
	trimmed := strings.TrimSpace(rawInput)
	for _, shift := range Shifts() {
		if strings.EqualFold(trimmed, string(shift)) {
			return shift, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidShift, rawInput)
}

// Valid reports whether the shift is one of the canonical enumeration values.
func (s Shift) Valid() bool {
	switch s {
	case ShiftPrimary, ShiftSecondary, ShiftTertiary:
		return true
	default:
		return false
	}
}

// String returns the display value.
func (s Shift) String() string {
	return string(s)
}

// UnmarshalJSON rejects values outside the enumeration. An empty string decodes to the
// zero Shift so that validation can report the field as missing.
func (s *Shift) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw) == "" {
		*s = ""
		return nil
	}
	parsed, err := ParseShift(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// DutyID identifies a persisted duty. The zero value marks a record that was never stored.
type DutyID int64

// NewDutyID validates raw input and returns a DutyID.
func NewDutyID(rawInput string) (DutyID, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(rawInput), 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDutyID, rawInput)
	}
	return DutyID(value), nil
}

// String returns the decimal identifier.
func (id DutyID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IsZero reports whether the id is the not-yet-persisted sentinel.
func (id DutyID) IsZero() bool {
	return id == 0
}

// Record is the duty shape exchanged with the remote store and cached by clients.
type Record struct {
	ID     DutyID `json:"id"`
	RAName string `json:"ra_name"`
	Date   string `json:"date"`
	Shift  Shift  `json:"shift"`
	Notes  string `json:"notes"`
}

// Draft returns the editable fields of the record.
func (r Record) Draft() Draft {
	return Draft{RAName: r.RAName, Date: r.Date, Shift: r.Shift, Notes: r.Notes}
}

// Draft carries the fields of a duty being created or rewritten.
type Draft struct {
	RAName string `json:"ra_name"`
	Date   string `json:"date"`
	Shift  Shift  `json:"shift"`
	Notes  string `json:"notes"`
}

// Normalize trims surrounding whitespace from the identifying fields.
func (d Draft) Normalize() Draft {
	d.RAName = strings.TrimSpace(d.RAName)
	d.Date = strings.TrimSpace(d.Date)
	return d
}

// Validate reports every missing or malformed field at once.
func (d Draft) Validate() error {
	var fields []FieldError
	name := strings.TrimSpace(d.RAName)
	switch {
	case name == "":
		fields = append(fields, FieldError{Field: FieldRAName, Message: "is required"})
	case len(name) > maxNameLength:
		fields = append(fields, FieldError{Field: FieldRAName, Message: fmt.Sprintf("exceeds %d characters", maxNameLength)})
	}
	date := strings.TrimSpace(d.Date)
	switch {
	case date == "":
		fields = append(fields, FieldError{Field: FieldDate, Message: "is required"})
	case !dates.ValidKey(date):
		fields = append(fields, FieldError{Field: FieldDate, Message: "must be a YYYY-MM-DD calendar date"})
	}
	switch {
	case d.Shift == "":
		fields = append(fields, FieldError{Field: FieldShift, Message: "is required"})
	case !d.Shift.Valid():
		fields = append(fields, FieldError{Field: FieldShift, Message: "must be Primary, Secondary or Tertiary"})
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// Record binds the draft to an identifier.
func (d Draft) Record(id DutyID) Record {
	return Record{ID: id, RAName: d.RAName, Date: d.Date, Shift: d.Shift, Notes: d.Notes}
}

// Patch overrides selected fields of an existing record; nil fields are kept.
type Patch struct {
	RAName *string
	Date   *string
	Shift  *Shift
	Notes  *string
}

// Apply returns the record with the patch merged in. The id is never changed.
func (p Patch) Apply(record Record) Record {
	merged := record
	if p.RAName != nil {
		merged.RAName = strings.TrimSpace(*p.RAName)
	}
	if p.Date != nil {
		merged.Date = strings.TrimSpace(*p.Date)
	}
	if p.Shift != nil {
		merged.Shift = *p.Shift
	}
	if p.Notes != nil {
		merged.Notes = *p.Notes
	}
	return merged
}

// FieldError names one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports required or malformed fields. It never reaches the network.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Field+" "+field.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Has reports whether the named field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, candidate := range e.Fields {
		if candidate.Field == field {
			return true
		}
	}
	return false
}

// NewFieldError builds a single-field ValidationError.
func NewFieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
