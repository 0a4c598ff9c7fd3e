// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolveOnce(t *testing.T) {
	path := writeArtifact(t, testDeltaArtifact())
	r := NewRegistry()

	first, err := r.Resolve(path)
	require.NoError(t, err)
	second, err := r.Resolve(path)
	require.NoError(t, err)

	// Pointer identity: the second resolve must not re-read the file.
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), r.Stats().Loads)
	assert.Equal(t, int64(1), r.Stats().Hits)
}

func TestRegistryConcurrentResolve(t *testing.T) {
	path := writeArtifact(t, testDeltaArtifact())
	r := NewRegistry()

	const workers = 32
	results := make([]*Artifact, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			art, err := r.Resolve(path)
			assert.NoError(t, err)
			results[i] = art
		}(i)
	}
	wg.Wait()

	for _, art := range results {
		assert.Same(t, results[0], art)
	}
	assert.Equal(t, int64(1), r.Stats().Loads)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryFailureNotCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.json")
	r := NewRegistry()

	_, err := r.Resolve(path)
	require.ErrorIs(t, err, ErrModelNotFound)

	// The artifact appears after the first failed request.
	data, err := os.ReadFile(writeArtifact(t, testDeltaArtifact()))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	art, err := r.Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, "delta-test", art.Name)
}

func TestRegistryPreload(t *testing.T) {
	good := writeArtifact(t, testDeltaArtifact())
	r := NewRegistry()

	require.NoError(t, r.Preload([]string{good}))
	assert.Equal(t, 1, r.Len())

	err := r.Preload([]string{good, filepath.Join(t.TempDir(), "absent.json")})
	assert.ErrorIs(t, err, ErrModelNotFound)
}
