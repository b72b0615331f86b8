// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package audit

import (
	"context"
	"sync"

	"github.com/tomtom215/leadledger/internal/models"
)

// MemoryStore keeps run rows in memory. Data is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   []models.RunRecord
	maxLen int
	// Err, when set, is returned by SaveRun instead of storing.
	Err error
}

// NewMemoryStore creates a store holding at most maxLen rows.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{maxLen: maxLen}
}

// SaveRun appends run, dropping the oldest tenth when full.
func (s *MemoryStore) SaveRun(_ context.Context, run models.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	if len(s.runs) >= s.maxLen {
		drop := s.maxLen / 10
		if drop < 1 {
			drop = 1
		}
		s.runs = s.runs[drop:]
	}
	s.runs = append(s.runs, run)
	return nil
}

// RecentRuns returns up to limit rows, newest first, optionally for one
// source.
func (s *MemoryStore) RecentRuns(_ context.Context, source string, limit int) ([]models.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RunRecord
	for i := len(s.runs) - 1; i >= 0; i-- {
		if source != "" && s.runs[i].Source != source {
			continue
		}
		out = append(out, s.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Runs returns a copy of every stored row in insertion order.
func (s *MemoryStore) Runs() []models.RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RunRecord(nil), s.runs...)
}

// Len returns the number of stored rows.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Tee writes every run to each non-nil store in order. All stores are
// attempted; the first error is returned.
func Tee(stores ...Store) Store {
	out := make(teeStore, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type teeStore []Store

func (t teeStore) SaveRun(ctx context.Context, run models.RunRecord) error {
	var first error
	for _, s := range t {
		if err := s.SaveRun(ctx, run); err != nil && first == nil {
			first = err
		}
	}
	return first
}
