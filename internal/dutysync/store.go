package dutysync

import (
	"sync"

	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
)

// Store is the client's ordered cache of remote duty records.
// Insertion order is preserved; nothing is sorted implicitly.
// Every effective mutation advances Revision.
type Store struct {
	mu       sync.RWMutex
	records  []duties.Record
	revision uint64
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{}
}

// Load replaces the whole collection.
func (s *Store) Load(records []duties.Record) {
	loaded := make([]duties.Record, len(records))
	copy(loaded, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = loaded
	s.revision++
}

// Add appends a record. A record whose id is already present replaces it in place.
func (s *Store) Add(record duties.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !record.ID.IsZero() {
		if index := s.indexOf(record.ID); index >= 0 {
			s.records[index] = record
			s.revision++
			return
		}
	}
	s.records = append(s.records, record)
	s.revision++
}

// Replace swaps the record with id for record. Unknown ids are a no-op.
func (s *Store) Replace(id duties.DutyID, record duties.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := s.indexOf(id)
	if index < 0 {
		return false
	}
	s.records[index] = record
	s.revision++
	return true
}

// CompareAndReplace swaps the record with id only while it still equals expected.
func (s *Store) CompareAndReplace(id duties.DutyID, expected, record duties.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := s.indexOf(id)
	if index < 0 || s.records[index] != expected {
		return false
	}
	s.records[index] = record
	s.revision++
	return true
}

// Remove deletes the record with id and returns it with its former index.
// Unknown ids are a no-op.
func (s *Store) Remove(id duties.DutyID) (duties.Record, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := s.indexOf(id)
	if index < 0 {
		return duties.Record{}, -1, false
	}
	removed := s.records[index]
	s.records = append(s.records[:index], s.records[index+1:]...)
	s.revision++
	return removed, index, true
}

// InsertAt places record at index, clamped to the collection bounds.
// A record whose id is already present is left alone.
func (s *Store) InsertAt(index int, record duties.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !record.ID.IsZero() && s.indexOf(record.ID) >= 0 {
		return false
	}
	if index < 0 {
		index = 0
	}
	if index > len(s.records) {
		index = len(s.records)
	}
	s.records = append(s.records, duties.Record{})
	copy(s.records[index+1:], s.records[index:])
	s.records[index] = record
	s.revision++
	return true
}

// Get returns the record with id.
func (s *Store) Get(id duties.DutyID) (duties.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index := s.indexOf(id)
	if index < 0 {
		return duties.Record{}, false
	}
	return s.records[index], true
}

// All returns a copy of the records in store order.
func (s *Store) All() []duties.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]duties.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Revision identifies the current contents; it changes on every effective mutation.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Store) indexOf(id duties.DutyID) int {
	if id.IsZero() {
		return -1
	}
	for index := range s.records {
		if s.records[index].ID == id {
			return index
		}
	}
	return -1
}
