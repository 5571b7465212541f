package dutysync

import (
	"context"
	"strings"
	"sync"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
)

// fakeRemote is an in-memory remote store whose calls can fail or block on demand.
type fakeRemote struct {
	mu       sync.Mutex
	records  []duties.Record
	nextID   duties.DutyID
	failures map[string]error
	gates    map[string]chan struct{}
	entered  map[string]chan struct{}
	calls    map[string]int
}

func newFakeRemote(records ...duties.Record) *fakeRemote {
	remote := &fakeRemote{
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		entered:  make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}
	for _, record := range records {
		remote.records = append(remote.records, record)
		if record.ID > remote.nextID {
			remote.nextID = record.ID
		}
	}
	return remote
}

// fail makes every later call of name return err.
func (f *fakeRemote) fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[name] = err
}

// hold blocks the next calls of name until release is called. The returned channel receives
// once per call that reached the remote.
func (f *fakeRemote) hold(name string) (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	entered := make(chan struct{}, 4)
	f.gates[name] = gate
	f.entered[name] = entered
	return entered, func() { close(gate) }
}

func (f *fakeRemote) enter(name string) error {
	f.mu.Lock()
	f.calls[name]++
	gate, entered, failErr := f.gates[name], f.entered[name], f.failures[name]
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return failErr
}

func (f *fakeRemote) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRemote) ListDuties(_ context.Context, raFilter string) ([]duties.Record, error) {
	if err := f.enter("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]duties.Record, 0, len(f.records))
	for _, record := range f.records {
		if raFilter == "" || strings.Contains(strings.ToLower(record.RAName), strings.ToLower(raFilter)) {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeRemote) CreateDuty(_ context.Context, draft duties.Draft) (duties.Record, error) {
	if err := f.enter("create"); err != nil {
		return duties.Record{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	record := draft.Record(f.nextID)
	f.records = append(f.records, record)
	return record, nil
}

func (f *fakeRemote) UpdateDuty(_ context.Context, id duties.DutyID, draft duties.Draft) (duties.Record, error) {
	if err := f.enter("update"); err != nil {
		return duties.Record{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for index := range f.records {
		if f.records[index].ID == id {
			f.records[index] = draft.Record(id)
			return f.records[index], nil
		}
	}
	return duties.Record{}, duties.ErrNotFound
}

func (f *fakeRemote) DeleteDuty(_ context.Context, id duties.DutyID) error {
	if err := f.enter("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for index := range f.records {
		if f.records[index].ID == id {
			f.records = append(f.records[:index], f.records[index+1:]...)
			return nil
		}
	}
	return duties.ErrNotFound
}
