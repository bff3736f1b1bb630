// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppendSnapshot(t *testing.T) {
	s := NewStore()

	s.Append(Record{Topic: "a", Payload: "1", QoS: 1, ReceivedAt: time.Now()})
	s.Append(Record{Topic: "b", Payload: "2", QoS: 0, ReceivedAt: time.Now()})

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Topic)
	assert.Equal(t, "b", snap[1].Topic)
	assert.Equal(t, 2, s.Len())
}

func TestStoreSnapshotIsDefensiveCopy(t *testing.T) {
	s := NewStore()
	s.Append(Record{Topic: "a"})

	snap := s.Snapshot()
	s.Append(Record{Topic: "b"})

	assert.Len(t, snap, 1, "snapshot must not observe later appends")
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	s.Append(Record{Topic: "a"})
	s.Append(Record{Topic: "b"})

	s.Clear()

	assert.Empty(t, s.Snapshot())
	assert.Zero(t, s.Len())
}

func TestStoreConcurrentAppends(t *testing.T) {
	s := NewStore()

	const writers = 8
	const perWriter = 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				s.Append(Record{Topic: fmt.Sprintf("writer-%d", w), Payload: fmt.Sprint(i)})
			}
		}(w)
	}
	wg.Wait()

	require.Equal(t, writers*perWriter, s.Len(), "no loss, no duplication")

	// Per-writer order is preserved even though writers interleave.
	next := make(map[string]int)
	for _, rec := range s.Snapshot() {
		assert.Equal(t, fmt.Sprint(next[rec.Topic]), rec.Payload)
		next[rec.Topic]++
	}
}
