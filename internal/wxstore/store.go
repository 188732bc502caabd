// Package wxstore implements the in-memory bounded station store: an
// insertion-ordered map from station id to the most recent record
// received for it, with capacity eviction and time-based expiry.
//
// The ordering requirement (iteration order equals insertion order, with
// O(1) remove-and-reinsert on update) is built with a map from id to
// entry plus an intrusive doubly linked list threaded through the
// entries themselves, all behind one mutex. container/list is
// deliberately not used - the list needs to hold *entry directly so
// eviction-by-pointer stays O(1) without an interface{} box on every
// lookup.
package wxstore

import (
	"errors"
	"sync"
	"time"

	"github.com/weathermesh/wxfabric/internal/codec"
)

// MaxStations is the default station capacity of a Store (see New).
// Inserting a new id while at capacity evicts the earliest-inserted entry.
const MaxStations = 20

// ExpiryMillis is the default time, in milliseconds since its ingest
// timestamp, that an entry survives before Sweep removes it (see New).
const ExpiryMillis = 30_000

// ErrMissingID is returned by Put when the record carries no "id" field.
var ErrMissingID = errors.New("wxstore: record missing 'id' field")

// Outcome distinguishes a fresh insertion from an update of an existing
// station, and flags a fresh insertion that had to evict another
// station to stay within capacity.
type Outcome int

const (
	Updated Outcome = iota
	Created
	CreatedWithEviction
)

type entry struct {
	id        string
	record    *codec.Record
	timestamp int64 // ingest time, millis since epoch

	next, prev *entry
}

// Store is a bounded, insertion-ordered map from station id to its most
// recent record. The zero value is not usable; construct with New.
type Store struct {
	mu     sync.Mutex
	lamp   lamportClock
	byID   map[string]*entry
	head   *entry // most recently inserted/updated
	tail   *entry // earliest insertion, first evicted on overflow
	nowFn  func() int64

	maxStations  int
	expiryMillis int64
}

// lamportClock is the minimal surface wxstore needs from
// internal/lamport.Clock, expressed as an interface so tests can supply
// a fake without importing the lamport package.
type lamportClock interface {
	Current() int64
	Merge(received int64) int64
}

// New returns an empty Store whose Lamport counter is merged with clock
// whenever LoadSnapshot observes a higher persisted value. maxStations
// and expiryMillis configure capacity and expiry; a value <= 0 for
// either falls back to this package's MaxStations/ExpiryMillis default.
func New(clock lamportClock, maxStations int, expiryMillis int64) *Store {
	if maxStations <= 0 {
		maxStations = MaxStations
	}
	if expiryMillis <= 0 {
		expiryMillis = ExpiryMillis
	}
	return &Store{
		lamp:         clock,
		byID:         make(map[string]*entry),
		nowFn:        nowMillis,
		maxStations:  maxStations,
		expiryMillis: expiryMillis,
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Put inserts or replaces the entry for record's id, stamping it with
// lamportValue (the caller's Lamport value after its own receive-tick)
// and the current wall-clock time. It reports whether the id was newly
// created or an existing one was updated.
func (s *Store) Put(record *codec.Record, lamportValue int64) (Outcome, error) {
	id, ok := record.Get("id")
	if !ok || id == "" {
		return Updated, ErrMissingID
	}

	stamped := record.Clone()
	stamped.Set("lamportClock", formatInt(lamportValue))

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()

	if e, exists := s.byID[id]; exists {
		e.record = stamped
		e.timestamp = now
		s.unlink(e)
		s.insertFront(e)
		return Updated, nil
	}

	outcome := Created
	if len(s.byID) >= s.maxStations {
		if s.tail != nil {
			s.evict(s.tail)
			outcome = CreatedWithEviction
		}
	}

	e := &entry{id: id, record: stamped, timestamp: now}
	s.byID[id] = e
	s.insertFront(e)
	return outcome, nil
}

// GetByID returns a clone of the record stored for id, if any.
func (s *Store) GetByID(id string) (*codec.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return e.record.Clone(), true
}

// GetLatest returns a clone of the record with the largest ingest
// timestamp, breaking ties by most-recent insertion position - which, by
// construction, is always the head of the list.
func (s *Store) GetLatest() (*codec.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.head == nil {
		return nil, false
	}
	return s.head.record.Clone(), true
}

// Sweep removes every entry whose age exceeds the Store's configured
// expiry as of now
// (millis since epoch), preserving the relative order of survivors. It
// reports whether anything was removed.
func (s *Store) Sweep(now int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	e := s.tail
	for e != nil {
		prev := e.prev
		if now-e.timestamp > s.expiryMillis {
			s.evict(e)
			removed = true
		}
		e = prev
	}
	return removed
}

// Len returns the number of stations currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Snapshot returns a copy of every record currently held, oldest
// insertion first, suitable for a full persistence rewrite.
func (s *Store) Snapshot() []*codec.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*codec.Record, 0, len(s.byID))
	for e := s.tail; e != nil; e = e.prev {
		out = append(out, e.record.Clone())
	}
	return out
}

// LoadSnapshot replaces the Store's contents with records, stamping
// every one with the current wall-clock time as its ingest timestamp
// (crash-recovered data is kept for a fresh ExpiryMillis, not its
// original remaining lifetime - see the design notes on LoadSnapshot).
// It raises the Store's Lamport counter to at least the maximum
// lamportClock value found in records.
func (s *Store) LoadSnapshot(records []*codec.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]*entry)
	s.head = nil
	s.tail = nil

	now := s.nowFn()
	var maxClock int64

	for _, r := range records {
		id, ok := r.Get("id")
		if !ok || id == "" {
			continue
		}
		if raw, ok := r.Get("lamportClock"); ok {
			if v, ok := parseInt(raw); ok && v > maxClock {
				maxClock = v
			}
		}

		e := &entry{id: id, record: r.Clone(), timestamp: now}
		s.byID[id] = e
		s.insertFront(e)
	}

	if maxClock > 0 {
		s.lamp.Merge(maxClock)
	}
}

func (s *Store) insertFront(e *entry) {
	e.next = s.head
	e.prev = nil
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *Store) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.next, e.prev = nil, nil
}

func (s *Store) evict(e *entry) {
	s.unlink(e)
	delete(s.byID, e.id)
}
