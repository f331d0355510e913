// Package memory is an in-process CampaignStore used by tests and --store=memory.
package memory

import (
	"context"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"campaignScope/internal/model"
	"campaignScope/internal/storage"
)

type entry struct {
	record model.CampaignRecord
	seq    uint64
}

// Store keeps campaign records in a map keyed by lower-cased address.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	seq     uint64
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Upsert stores record unless its address is already present.
func (s *Store) Upsert(_ context.Context, record model.CampaignRecord) (storage.UpsertResult, error) {
	key := strings.ToLower(record.Address)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		return storage.AlreadyExists, nil
	}
	if record.ObservedAt.IsZero() {
		record.ObservedAt = s.now()
	}
	s.seq++
	s.entries[key] = entry{record: cloneRecord(record), seq: s.seq}
	return storage.Inserted, nil
}

// List returns all records, newest ObservedAt first.
func (s *Store) List(_ context.Context) ([]model.CampaignRecord, error) {
	s.mu.RLock()
	entries := make([]entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.record.ObservedAt.Equal(b.record.ObservedAt) {
			return a.record.ObservedAt.After(b.record.ObservedAt)
		}
		return a.seq > b.seq
	})

	out := make([]model.CampaignRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, cloneRecord(e.record))
	}
	return out, nil
}

// cloneRecord copies the big.Int fields so stored records never share memory
// with callers.
func cloneRecord(record model.CampaignRecord) model.CampaignRecord {
	record.Goal = cloneBig(record.Goal)
	record.Deadline = cloneBig(record.Deadline)
	return record
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
