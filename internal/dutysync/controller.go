package dutysync

import (
	"context"
	"fmt"
	"sync"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"go.uber.org/zap"
)

// Remote is the remote duty store.
type Remote interface {
	ListDuties(ctx context.Context, raFilter string) ([]duties.Record, error)
	CreateDuty(ctx context.Context, draft duties.Draft) (duties.Record, error)
	UpdateDuty(ctx context.Context, id duties.DutyID, draft duties.Draft) (duties.Record, error)
	DeleteDuty(ctx context.Context, id duties.DutyID) error
}

// Confirmer asks the user to confirm a delete.
type Confirmer interface {
	ConfirmDelete(record duties.Record) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(record duties.Record) bool

func (f ConfirmFunc) ConfirmDelete(record duties.Record) bool {
	return f(record)
}

// ChangeKind names a successful mutation.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// DutyChange is delivered to OnDutyChanged listeners.
type DutyChange struct {
	Kind   ChangeKind
	Record duties.Record
}

// ControllerConfig describes the controller dependencies.
type ControllerConfig struct {
	Remote Remote
	Store  *Store
	Logger *zap.Logger
}

// Controller applies create, update, delete and reload against the remote store while
// keeping the local Store consistent. Store locks are never held across a remote call.
type Controller struct {
	remote Remote
	store  *Store
	logger *zap.Logger

	listenersMu sync.RWMutex
	listeners   map[int64]func(DutyChange)
	nextID      int64
}

// NewController constructs a controller. A nil Store gets a fresh one.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Remote == nil {
		return nil, ErrMissingRemote
	}
	store := cfg.Store
	if store == nil {
		store = NewStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		remote:    cfg.Remote,
		store:     store,
		logger:    logger,
		listeners: make(map[int64]func(DutyChange)),
	}, nil
}

// Store exposes the controlled store for read-side derivation.
func (c *Controller) Store() *Store {
	return c.store
}

// OnDutyChanged registers listener for successful mutations and returns its unsubscribe func.
func (c *Controller) OnDutyChanged(listener func(DutyChange)) func() {
	if listener == nil {
		return func() {}
	}
	c.listenersMu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = listener
	c.listenersMu.Unlock()
	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

// Create validates draft, sends it to the remote store and adds the stored record locally.
// Nothing is added before the remote call succeeds.
func (c *Controller) Create(ctx context.Context, draft duties.Draft) (duties.Record, error) {
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return duties.Record{}, err
	}

	created, err := c.remote.CreateDuty(ctx, draft)
	if err == nil && created.ID.IsZero() {
		err = errMissingID
	}
	if err != nil {
		c.logError(OperationCreate, 0, err, zap.String("ra_name", draft.RAName), zap.String("date", draft.Date))
		return duties.Record{}, &SyncError{Op: OperationCreate, Err: err}
	}

	c.store.Add(created)
	c.notify(DutyChange{Kind: ChangeCreated, Record: created})
	return created, nil
}

// Update applies patch to the stored record immediately, then confirms it remotely.
// On failure the prior value is restored.
func (c *Controller) Update(ctx context.Context, id duties.DutyID, patch duties.Patch) (duties.Record, error) {
	prior, ok := c.store.Get(id)
	if !ok {
		return duties.Record{}, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}
	optimistic := patch.Apply(prior)
	draft := optimistic.Draft().Normalize()
	if err := draft.Validate(); err != nil {
		return duties.Record{}, err
	}
	optimistic = draft.Record(id)

	c.store.Replace(id, optimistic)
	confirmed, remoteErr := c.remote.UpdateDuty(ctx, id, draft)
	outcome := reconcileUpdate(c.store, id, prior, optimistic, confirmed, remoteErr)
	if !outcome.Accepted {
		c.logError(OperationUpdate, id, remoteErr, zap.Bool("dropped", outcome.Dropped))
		return duties.Record{}, &SyncError{Op: OperationUpdate, ID: id, Err: remoteErr}
	}

	c.notify(DutyChange{Kind: ChangeUpdated, Record: outcome.Record})
	return outcome.Record, nil
}

// Delete removes the record after confirmation. Without confirmation nothing happens.
// On remote failure the record is restored at its former position.
func (c *Controller) Delete(ctx context.Context, id duties.DutyID, confirmer Confirmer) error {
	if id.IsZero() {
		return &SyncError{Op: OperationDelete, Err: duties.ErrInvalidDutyID}
	}
	subject, ok := c.store.Get(id)
	if !ok {
		subject = duties.Record{ID: id}
	}
	if confirmer == nil || !confirmer.ConfirmDelete(subject) {
		return ErrDeleteNotConfirmed
	}

	removed, index, wasPresent := c.store.Remove(id)
	remoteErr := c.remote.DeleteDuty(ctx, id)
	if !reconcileDelete(c.store, id, removed, index, wasPresent, remoteErr) {
		c.logError(OperationDelete, id, remoteErr)
		return &SyncError{Op: OperationDelete, ID: id, Err: remoteErr}
	}

	if !wasPresent {
		removed = subject
	}
	c.notify(DutyChange{Kind: ChangeDeleted, Record: removed})
	return nil
}

// Reload fetches the remote records, optionally filtered by RA name, and replaces the store.
// On failure the store keeps its last known good contents.
func (c *Controller) Reload(ctx context.Context, filterText string) error {
	records, err := c.remote.ListDuties(ctx, filterText)
	if err != nil {
		c.logError(OperationReload, 0, err, zap.String("filter", filterText))
		return &SyncError{Op: OperationReload, Err: err}
	}
	c.store.Load(records)
	return nil
}

func (c *Controller) notify(change DutyChange) {
	c.listenersMu.RLock()
	listeners := make([]func(DutyChange), 0, len(c.listeners))
	for _, listener := range c.listeners {
		listeners = append(listeners, listener)
	}
	c.listenersMu.RUnlock()
	for _, listener := range listeners {
		listener(change)
	}
}

func (c *Controller) logError(operation Operation, id duties.DutyID, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", string(operation)),
	}
	if !id.IsZero() {
		attrs = append(attrs, zap.Int64("duty_id", int64(id)))
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	c.logger.Warn("duty sync failed", attrs...)
}
