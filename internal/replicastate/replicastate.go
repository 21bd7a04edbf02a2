// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package replicastate persists replicas.json, the reconciler's memory of
// the last observed replica count and transition timestamps per workload,
// so a scale-up after a scale-down can restore the prior count instead of
// falling back to a configured default.
package replicastate

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/atomicfile"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/lockdir"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/exceptions"
)

// lockBudget bounds how long Load waits for the sibling lock directory
// next to replicas.json before giving up, the same "create-directory
// semantics" lock used for RAW_ROOT and OUT_DIR.
const lockBudget = 30 * time.Second

// Store is the in-memory, file-backed replica state table keyed by
// "ns|kind|name". It is advisory: losing it degrades behavior but never
// violates correctness, so callers treat Load errors for a missing file as
// an empty store rather than a hard failure.
type Store struct {
	mu        sync.Mutex
	path      string
	entries   map[string]exceptions.ReplicaStateEntry
	release   lockdir.Release
	unlockOne sync.Once
}

// Load acquires the exclusive lock next to path, then reads replicas.json,
// treating a missing file as an empty store. The lock is held until Flush
// releases it, so the read-mutate-write cycle across one reconciler run is
// exclusive end to end. If the lock cannot be acquired within lockBudget,
// Load returns an error (CodeLockTimeout): the caller should treat this the
// same as any other lock-contention case and exit cleanly without writes.
func Load(path string) (*Store, error) {
	release, ok := lockdir.AcquireWithBudget(path, lockBudget)
	if !ok {
		return nil, errs.NewError().WithCode(errs.CodeLockTimeout).WithMessage("replica state lock busy: " + path)
	}

	s := &Store{path: path, entries: map[string]exceptions.ReplicaStateEntry{}, release: release}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		s.Unlock()
		return nil, errs.WrapError(err, "reading replica state "+path, errs.CodeInternal)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		s.Unlock()
		return nil, errs.WrapError(err, "parsing replica state "+path, errs.CodeJSONParseError)
	}
	return s, nil
}

// Unlock releases the lock Load acquired without writing anything. It is
// idempotent: once Flush or Unlock has released the lock, later calls are a
// no-op. Callers that hold a *Store past a point where Flush will not be
// reached (an error return before the normal exit point) must call Unlock
// so a later Load on the same path is not blocked indefinitely.
func (s *Store) Unlock() {
	s.unlockOne.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// Get returns the stored entry for the key and whether one exists.
func (s *Store) Get(ns, kind, name string) (exceptions.ReplicaStateEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[exceptions.ReplicaStateKey(ns, kind, name)]
	return e, ok
}

// Set records (or overwrites) the entry for the key. Callers call Flush to
// publish the change to disk.
func (s *Store) Set(ns, kind, name string, e exceptions.ReplicaStateEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[exceptions.ReplicaStateKey(ns, kind, name)] = e
}

// Flush publishes the current in-memory table to disk via atomic rename
// and releases the lock Load acquired.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.Unlock()
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errs.WrapError(err, "marshaling replica state", errs.CodeInternal)
	}
	if err := atomicfile.Write(s.path, data, 0o644); err != nil {
		return errs.WrapError(err, "writing replica state "+s.path, errs.CodeInternal)
	}
	return nil
}
