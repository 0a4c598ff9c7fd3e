// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Registry caches loaded artifacts by filesystem path.
//
// # Description
//
// Every artifact is read and validated at most once per path for the
// lifetime of the process. Artifacts are immutable once trained, so
// there is no TTL and no invalidation: a new model means a new file at
// a new path and a config change.
//
// Load failures are not cached. A request that races a broken
// deployment keeps failing fast, and the first request after the
// artifact is fixed in place succeeds without a restart.
//
// # Thread Safety
//
// Safe for concurrent use. Uses sync.RWMutex for the entry map and
// singleflight.Group so concurrent first requests for the same path
// trigger exactly one disk read.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Artifact
	flight  singleflight.Group

	// Stats
	hits   int64
	misses int64
	loads  int64
	errors int64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Artifact),
	}
}

// Resolve returns the artifact at path, loading it on first use.
//
// Outputs:
//   - *Artifact: The cached or freshly loaded artifact
//   - error: ErrModelNotFound when the file is absent, otherwise the
//     load/validation failure
func (r *Registry) Resolve(path string) (*Artifact, error) {
	r.mu.RLock()
	art, ok := r.entries[path]
	r.mu.RUnlock()
	if ok {
		atomic.AddInt64(&r.hits, 1)
		return art, nil
	}
	atomic.AddInt64(&r.misses, 1)

	v, err, _ := r.flight.Do(path, func() (interface{}, error) {
		// Double-check: another flight may have stored it already.
		r.mu.RLock()
		art, ok := r.entries[path]
		r.mu.RUnlock()
		if ok {
			return art, nil
		}

		art, err := LoadArtifact(path)
		if err != nil {
			atomic.AddInt64(&r.errors, 1)
			return nil, err
		}

		r.mu.Lock()
		r.entries[path] = art
		r.mu.Unlock()
		atomic.AddInt64(&r.loads, 1)
		return art, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Artifact), nil
}

// Preload resolves every given path, returning the first failure.
//
// Called at startup so a misconfigured model table fails the deploy
// instead of the first unlucky request.
func (r *Registry) Preload(paths []string) error {
	for _, p := range paths {
		if _, err := r.Resolve(p); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of loaded artifacts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// RegistryStats contains counters for the /health payload and logs.
type RegistryStats struct {
	Loaded int
	Hits   int64
	Misses int64
	Loads  int64
	Errors int64
}

// Stats returns current registry counters.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	loaded := len(r.entries)
	r.mu.RUnlock()

	return RegistryStats{
		Loaded: loaded,
		Hits:   atomic.LoadInt64(&r.hits),
		Misses: atomic.LoadInt64(&r.misses),
		Loads:  atomic.LoadInt64(&r.loads),
		Errors: atomic.LoadInt64(&r.errors),
	}
}
