// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"sync"
	"time"
)

// Record is the broker's representation of one received PUBLISH packet,
// kept for later inspection by tests. Immutable once appended.
type Record struct {
	Topic      string
	Payload    string // UTF-8 best effort, invalid sequences replaced
	QoS        byte
	Retain     bool
	ReceivedAt time.Time
}

// Store is an append-only log of publish records. Records are ordered by
// append order across all connections combined; a snapshot never observes
// a partially constructed record.
type Store struct {
	mu      sync.Mutex
	records []Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds a fully formed record to the log. Callers assemble the
// record outside the lock; the critical section is the slice append only.
func (s *Store) Append(r Record) {
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
}

// Snapshot returns a copy of all records in insertion order. The copy is
// defensive: concurrent appends never mutate a returned slice.
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Clear removes all records. Used between test scenarios.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}

// Len returns the number of records currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
