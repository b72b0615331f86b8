// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package supervisor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/leadledger/internal/logging"
	"github.com/tomtom215/leadledger/internal/pipeline"
	"github.com/tomtom215/leadledger/internal/supervisor/services"
)

var (
	ErrSourceAlreadyScheduled = errors.New("source already scheduled")
	ErrSourceNotScheduled     = errors.New("source not scheduled")
	ErrNilSupervisorTree      = errors.New("supervisor tree cannot be nil")
	ErrNilRunner              = errors.New("runner cannot be nil")
)

// SourceStatus is the scheduler's view of one source.
type SourceStatus struct {
	Source       string     `json:"source"`
	Interval     string     `json:"interval"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
	LastRunID    string     `json:"last_run_id,omitempty"`
	LastStatus   string     `json:"last_status,omitempty"`
	LastUpserted int64      `json:"last_upserted"`
	LastError    string     `json:"last_error,omitempty"`
	Runs         int        `json:"runs"`
}

type scheduledSource struct {
	token  suture.ServiceToken
	status SourceStatus
}

// SourceScheduler owns the per-source ingest services in the tree.
type SourceScheduler struct {
	tree    *SupervisorTree
	runner  services.Runner
	mu      sync.RWMutex
	sources map[string]*scheduledSource
	now     func() time.Time
}

// NewSourceScheduler creates a scheduler adding services to tree.
func NewSourceScheduler(tree *SupervisorTree, runner services.Runner) (*SourceScheduler, error) {
	if tree == nil {
		return nil, ErrNilSupervisorTree
	}
	if runner == nil {
		return nil, ErrNilRunner
	}
	return &SourceScheduler{
		tree:    tree,
		runner:  runner,
		sources: make(map[string]*scheduledSource),
		now:     time.Now,
	}, nil
}

// AddSource schedules name every interval; the first run starts at once.
func (s *SourceScheduler) AddSource(name string, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sources[name]; ok {
		return fmt.Errorf("%w: %s", ErrSourceAlreadyScheduled, name)
	}

	svc := services.NewIngestService(s.runner, name, interval, services.WithResultFunc(s.record))
	token := s.tree.AddIngestService(svc)
	s.sources[name] = &scheduledSource{
		token: token,
		status: SourceStatus{
			Source:      name,
			Interval:    svc.Interval().String(),
			ScheduledAt: s.now().UTC(),
		},
	}

	logging.Info().Str("source", name).Dur("interval", svc.Interval()).Msg("Scheduled source")
	return nil
}

// RemoveSource stops the service for name. The tree must be serving.
func (s *SourceScheduler) RemoveSource(name string) error {
	s.mu.RLock()
	src, ok := s.sources[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSourceNotScheduled, name)
	}
	if err := s.tree.RemoveIngestService(src.token); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}

	s.mu.Lock()
	delete(s.sources, name)
	s.mu.Unlock()
	return nil
}

// Statuses returns every scheduled source sorted by name.
func (s *SourceScheduler) Statuses() []SourceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SourceStatus, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

func (s *SourceScheduler) record(name string, stats *pipeline.Stats, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[name]
	if !ok {
		return
	}
	now := s.now().UTC()
	st := &src.status
	st.LastRunAt = &now
	st.Runs++
	st.LastError = ""
	if stats != nil {
		st.LastRunID = stats.RunID
		st.LastStatus = string(stats.Status)
		st.LastUpserted = stats.Upserted
	}
	if err != nil {
		st.LastError = err.Error()
	}
}
