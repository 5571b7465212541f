package dutysync

import (
	"context"
	"errors"
	"testing"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"go.uber.org/zap"
)

var errRemoteDown = errors.New("remote unavailable")

func alexRecord() duties.Record {
	return duties.Record{ID: 1, RAName: "A", Date: "2025-03-28", Shift: duties.ShiftSecondary, Notes: "Main entrance duty"}
}

func newTestController(t *testing.T, remote *fakeRemote) *Controller {
	t.Helper()
	controller, err := NewController(ControllerConfig{Remote: remote, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to build controller: %v", err)
	}
	if err := controller.Reload(context.Background(), ""); err != nil {
		t.Fatalf("initial reload failed: %v", err)
	}
	return controller
}

func recordChanges(controller *Controller) *[]DutyChange {
	changes := &[]DutyChange{}
	controller.OnDutyChanged(func(change DutyChange) {
		*changes = append(*changes, change)
	})
	return changes
}

func TestNewControllerRequiresRemote(t *testing.T) {
	if _, err := NewController(ControllerConfig{}); !errors.Is(err, ErrMissingRemote) {
		t.Fatalf("expected ErrMissingRemote, got %v", err)
	}
}

func TestCreateValidatesBeforeCallingRemote(t *testing.T) {
	remote := newFakeRemote()
	controller := newTestController(t, remote)

	_, err := controller.Create(context.Background(), duties.Draft{RAName: " ", Date: "", Shift: duties.ShiftPrimary})
	var validationErr *duties.ValidationError
	if !errors.As(err, &validationErr) || !validationErr.Has(duties.FieldRAName) || !validationErr.Has(duties.FieldDate) {
		t.Fatalf("expected validation error for ra_name and date, got %v", err)
	}
	if remote.callCount("create") != 0 {
		t.Fatalf("validation failure must not reach the remote")
	}
}

func TestCreateAppliesOnlyAfterRemoteSuccess(t *testing.T) {
	remote := newFakeRemote(alexRecord())
	controller := newTestController(t, remote)
	changes := recordChanges(controller)

	remote.fail("create", errRemoteDown)
	_, err := controller.Create(context.Background(), duties.Draft{RAName: "Taylor Wong", Date: "2025-03-30", Shift: duties.ShiftTertiary})
	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Op != OperationCreate || !errors.Is(err, errRemoteDown) {
		t.Fatalf("expected create SyncError, got %v", err)
	}
	if controller.Store().Len() != 1 {
		t.Fatalf("failed create must not leave a record behind")
	}
	if len(*changes) != 0 {
		t.Fatalf("failed create must not notify")
	}

	remote.fail("create", nil)
	created, err := controller.Create(context.Background(), duties.Draft{RAName: "Taylor Wong", Date: "2025-03-30", Shift: duties.ShiftTertiary})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID != 2 {
		t.Fatalf("expected server-assigned id 2, got %s", created.ID)
	}
	if stored, ok := controller.Store().Get(2); !ok || stored != created {
		t.Fatalf("expected created record in store, got %#v", stored)
	}
	if len(*changes) != 1 || (*changes)[0].Kind != ChangeCreated {
		t.Fatalf("expected one created notification, got %#v", *changes)
	}
}

func TestUpdateRollsBackOnRemoteFailure(t *testing.T) {
	remote := newFakeRemote(alexRecord())
	controller := newTestController(t, remote)
	remote.fail("update", errRemoteDown)

	name := "B"
	_, err := controller.Update(context.Background(), 1, duties.Patch{RAName: &name})
	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Op != OperationUpdate || syncErr.ID != 1 {
		t.Fatalf("expected update SyncError, got %v", err)
	}
	stored, _ := controller.Store().Get(1)
	if stored != alexRecord() {
		t.Fatalf("expected prior record restored, got %#v", stored)
	}
}

func TestUpdateIsVisibleWhileInFlight(t *testing.T) {
	remote := newFakeRemote(alexRecord())
	controller := newTestController(t, remote)
	changes := recordChanges(controller)
	entered, release := remote.hold("update")

	name := "B"
	done := make(chan error, 1)
	go func() {
		_, err := controller.Update(context.Background(), 1, duties.Patch{RAName: &name})
		done <- err
	}()

	<-entered
	if stored, _ := controller.Store().Get(1); stored.RAName != "B" {
		t.Fatalf("expected optimistic value during the call, got %#v", stored)
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if stored, _ := controller.Store().Get(1); stored.RAName != "B" || stored.Notes != "Main entrance duty" {
		t.Fatalf("expected confirmed value, got %#v", stored)
	}
	if len(*changes) != 1 || (*changes)[0].Kind != ChangeUpdated {
		t.Fatalf("expected one update notification, got %#v", *changes)
	}
}

func TestUpdateRollbackKeepsInterleavedChange(t *testing.T) {
	remote := newFakeRemote(alexRecord())
	controller := newTestController(t, remote)
	remote.fail("update", errRemoteDown)
	entered, release := remote.hold("update")

	name := "B"
	done := make(chan error, 1)
	go func() {
		_, err := controller.Update(context.Background(), 1, duties.Patch{RAName: &name})
		done <- err
	}()

	<-entered
	interleaved := alexRecord()
	interleaved.RAName = "C"
	controller.Store().Replace(1, interleaved)
	release()

	if err := <-done; err == nil {
		t.Fatalf("expected update failure")
	}
	if stored, _ := controller.Store().Get(1); stored.RAName != "C" {
		t.Fatalf("rollback must not clobber the interleaved change, got %#v", stored)
	}
}

func TestUpdateValidatesMergedRecord(t *testing.T) {
	remote := newFakeRemote(alexRecord())
	controller := newTestController(t, remote)

	empty := ""
	_, err := controller.Update(context.Background(), 1, duties.Patch{Date: &empty})
	if !errors.Is(err, duties.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if remote.callCount("update") != 0 {
		t.Fatalf("validation failure must not reach the remote")
	}
	if stored, _ := controller.Store().Get(1); stored != alexRecord() {
		t.Fatalf("validation failure must not touch the store")
	}

	name := "B"
	if _, err := controller.Update(context.Background(), 42, duties.Patch{RAName: &name}); !errors.Is(err, ErrUnknownRecord) {
		t.Fatalf("expected ErrUnknownRecord, got %v", err)
	}
}

func TestUpdateOfRemotelyMissingRecordDropsIt(t *testing.T) {
	remote := newFakeRemote(alexRecord())
	controller := newTestController(t, remote)
	if err := remote.DeleteDuty(context.Background(), 1); err != nil {
		t.Fatalf("remote delete failed: %v", err)
	}

	name := "B"
	_, err := controller.Update(context.Background(), 1, duties.Patch{RAName: &name})
	if !errors.Is(err, duties.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, ok := controller.Store().Get(1); ok {
		t.Fatalf("expected the missing record to be dropped locally")
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	remote := newFakeRemote(alexRecord())
	controller := newTestController(t, remote)
	revision := controller.Store().Revision()

	for _, confirmer := range []Confirmer{nil, ConfirmFunc(func(duties.Record) bool { return false })} {
		if err := controller.Delete(context.Background(), 1, confirmer); !errors.Is(err, ErrDeleteNotConfirmed) {
			t.Fatalf("expected ErrDeleteNotConfirmed, got %v", err)
		}
	}
	if remote.callCount("delete") != 0 {
		t.Fatalf("unconfirmed delete must not reach the remote")
	}
	if controller.Store().Revision() != revision || controller.Store().Len() != 1 {
		t.Fatalf("unconfirmed delete must not mutate the store")
	}

	var asked duties.Record
	err := controller.Delete(context.Background(), 1, ConfirmFunc(func(record duties.Record) bool {
		asked = record
		return true
	}))
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if asked != alexRecord() {
		t.Fatalf("confirmation must see the record, got %#v", asked)
	}
	if controller.Store().Len() != 0 {
		t.Fatalf("expected record removed")
	}
}

func TestDeleteRestoresPositionOnFailure(t *testing.T) {
	second := duties.Record{ID: 2, RAName: "B", Date: "2025-03-29", Shift: duties.ShiftPrimary}
	third := duties.Record{ID: 3, RAName: "C", Date: "2025-03-30", Shift: duties.ShiftPrimary}
	remote := newFakeRemote(alexRecord(), second, third)
	controller := newTestController(t, remote)
	changes := recordChanges(controller)
	remote.fail("delete", errRemoteDown)

	err := controller.Delete(context.Background(), 2, ConfirmFunc(func(duties.Record) bool { return true }))
	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Op != OperationDelete {
		t.Fatalf("expected delete SyncError, got %v", err)
	}
	all := controller.Store().All()
	if len(all) != 3 || all[1] != second {
		t.Fatalf("expected record restored at its index, got %#v", all)
	}
	if len(*changes) != 0 {
		t.Fatalf("failed delete must not notify")
	}
}

func TestDeleteWinsOverReloadDuringCall(t *testing.T) {
	second := duties.Record{ID: 2, RAName: "B", Date: "2025-03-29", Shift: duties.ShiftPrimary}
	remote := newFakeRemote(alexRecord(), second)
	controller := newTestController(t, remote)
	entered, release := remote.hold("delete")

	done := make(chan error, 1)
	go func() {
		done <- controller.Delete(context.Background(), 1, ConfirmFunc(func(duties.Record) bool { return true }))
	}()

	<-entered
	if err := controller.Reload(context.Background(), ""); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, ok := controller.Store().Get(1); !ok {
		t.Fatalf("expected the reload to bring the record back while the delete is pending")
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := controller.Store().Get(1); ok {
		t.Fatalf("deleted record still in store: %#v", controller.Store().All())
	}
	if all := controller.Store().All(); len(all) != 1 || all[0] != second {
		t.Fatalf("expected only the untouched record, got %#v", all)
	}
}

func TestDeleteOfRemotelyMissingRecordSucceeds(t *testing.T) {
	remote := newFakeRemote(alexRecord())
	controller := newTestController(t, remote)
	changes := recordChanges(controller)
	if err := remote.DeleteDuty(context.Background(), 1); err != nil {
		t.Fatalf("remote delete failed: %v", err)
	}

	if err := controller.Delete(context.Background(), 1, ConfirmFunc(func(duties.Record) bool { return true })); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if controller.Store().Len() != 0 {
		t.Fatalf("expected record removed locally")
	}
	if len(*changes) != 1 || (*changes)[0].Kind != ChangeDeleted || (*changes)[0].Record.ID != 1 {
		t.Fatalf("expected delete notification, got %#v", *changes)
	}
}

func TestReloadFailureKeepsStore(t *testing.T) {
	remote := newFakeRemote(alexRecord())
	controller := newTestController(t, remote)
	revision := controller.Store().Revision()

	remote.fail("list", errRemoteDown)
	err := controller.Reload(context.Background(), "")
	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Op != OperationReload {
		t.Fatalf("expected reload SyncError, got %v", err)
	}
	if controller.Store().Len() != 1 || controller.Store().Revision() != revision {
		t.Fatalf("failed reload must leave the store untouched")
	}
}

func TestReloadAppliesServerFilter(t *testing.T) {
	remote := newFakeRemote(alexRecord(), duties.Record{ID: 2, RAName: "Taylor Wong", Date: "2025-03-30", Shift: duties.ShiftPrimary})
	controller := newTestController(t, remote)

	if err := controller.Reload(context.Background(), "wong"); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	all := controller.Store().All()
	if len(all) != 1 || all[0].ID != 2 {
		t.Fatalf("expected filtered reload, got %#v", all)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	remote := newFakeRemote()
	controller := newTestController(t, remote)
	count := 0
	unsubscribe := controller.OnDutyChanged(func(DutyChange) { count++ })
	unsubscribe()

	if _, err := controller.Create(context.Background(), duties.Draft{RAName: "A", Date: "2025-03-28", Shift: duties.ShiftPrimary}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no notifications after unsubscribe")
	}
}
