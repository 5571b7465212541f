package dutysync

import (
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
)

var (
	// ErrDeleteNotConfirmed indicates a delete the user did not confirm.
	ErrDeleteNotConfirmed = errors.New("dutysync: delete not confirmed")
	// ErrUnknownRecord indicates a mutation for an id the store does not hold.
	ErrUnknownRecord = errors.New("dutysync: record not in store")
	// ErrMissingRemote indicates a controller built without a remote store.
	ErrMissingRemote = errors.New("dutysync: remote store is required")

	errMissingID = errors.New("remote returned a record without id")
)

// Operation names a synchronized mutation.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationReload Operation = "reload"
)

// SyncError reports a failed remote call. Local state has already been rolled back.
type SyncError struct {
	Op  Operation
	ID  duties.DutyID
	Err error
}

func (e *SyncError) Error() string {
	if e.ID.IsZero() {
		return fmt.Sprintf("dutysync: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("dutysync: %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
