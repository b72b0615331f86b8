// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const checkpointPrefix = "checkpoint:"

// Checkpoint remembers the newest issue date ingested per source.
type Checkpoint interface {
	// Load returns the saved mark, or nil when none exists.
	Load(ctx context.Context, source string) (*Mark, error)
	Save(ctx context.Context, source string, mark Mark) error
	Clear(ctx context.Context, source string) error
}

// Mark is one saved checkpoint.
type Mark struct {
	MaxIssueDate time.Time `json:"max_issue_date"`
	RunID        string    `json:"run_id"`
	SavedAt      time.Time `json:"saved_at"`
}

// BadgerCheckpoint persists marks in BadgerDB so incremental runs survive
// restarts.
type BadgerCheckpoint struct {
	db    *badger.DB
	owned bool
}

// OpenBadgerCheckpoint opens (or creates) a Badger directory at path.
func OpenBadgerCheckpoint(path string) (*BadgerCheckpoint, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for checkpoints: %w", err)
	}
	return &BadgerCheckpoint{db: db, owned: true}, nil
}

// NewBadgerCheckpoint wraps an already open database. Close leaves it open.
func NewBadgerCheckpoint(db *badger.DB) *BadgerCheckpoint {
	return &BadgerCheckpoint{db: db}
}

// Load implements Checkpoint.
func (c *BadgerCheckpoint) Load(_ context.Context, source string) (*Mark, error) {
	var (
		mark  Mark
		found bool
	)
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(checkpointPrefix + source))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &mark)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", source, err)
	}
	if !found {
		return nil, nil
	}
	return &mark, nil
}

// Save implements Checkpoint.
func (c *BadgerCheckpoint) Save(_ context.Context, source string, mark Mark) error {
	data, err := json.Marshal(mark)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(checkpointPrefix+source), data)
	})
}

// Clear implements Checkpoint.
func (c *BadgerCheckpoint) Clear(_ context.Context, source string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(checkpointPrefix + source))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Close closes the database if OpenBadgerCheckpoint opened it.
func (c *BadgerCheckpoint) Close() error {
	if c == nil || !c.owned {
		return nil
	}
	return c.db.Close()
}

// InMemoryCheckpoint keeps marks in a map; for tests and dry runs.
type InMemoryCheckpoint struct {
	mu    sync.Mutex
	marks map[string]Mark
}

// NewInMemoryCheckpoint creates an empty checkpoint store.
func NewInMemoryCheckpoint() *InMemoryCheckpoint {
	return &InMemoryCheckpoint{marks: make(map[string]Mark)}
}

// Load implements Checkpoint.
func (c *InMemoryCheckpoint) Load(_ context.Context, source string) (*Mark, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.marks[source]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// Save implements Checkpoint.
func (c *InMemoryCheckpoint) Save(_ context.Context, source string, mark Mark) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marks[source] = mark
	return nil
}

// Clear implements Checkpoint.
func (c *InMemoryCheckpoint) Clear(_ context.Context, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.marks, source)
	return nil
}
