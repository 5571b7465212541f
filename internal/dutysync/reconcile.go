package dutysync

import (
	"errors"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
)

// updateOutcome describes how a finished update call was folded back into the store.
type updateOutcome struct {
	Accepted bool
	Record   duties.Record
	Dropped  bool
}

// reconcileUpdate folds the result of an update call into the store as it is now.
// A rollback only restores prior while the optimistic value is still in place, so changes
// that landed during the call are kept.
func reconcileUpdate(store *Store, id duties.DutyID, prior, optimistic, confirmed duties.Record, remoteErr error) updateOutcome {
	switch {
	case remoteErr == nil:
		if confirmed.ID.IsZero() {
			confirmed = optimistic
		}
		store.Replace(id, confirmed)
		return updateOutcome{Accepted: true, Record: confirmed}
	case errors.Is(remoteErr, duties.ErrNotFound):
		store.Remove(id)
		return updateOutcome{Accepted: false, Dropped: true}
	default:
		store.CompareAndReplace(id, optimistic, prior)
		return updateOutcome{Accepted: false, Record: prior}
	}
}

// reconcileDelete folds the result of a delete call into the store as it is now.
// A missing remote record already satisfies the delete. On success the id is removed again,
// since a reload that finished during the call may have brought it back.
func reconcileDelete(store *Store, id duties.DutyID, removed duties.Record, index int, wasPresent bool, remoteErr error) bool {
	if remoteErr == nil || errors.Is(remoteErr, duties.ErrNotFound) {
		store.Remove(id)
		return true
	}
	if wasPresent {
		store.InsertAt(index, removed)
	}
	return false
}
