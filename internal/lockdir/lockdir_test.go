// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package lockdir

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_SucceedsWhenUnlocked(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	release, ok := Acquire(dir, 3, time.Millisecond)
	require.True(t, ok)
	require.NotNil(t, release)
	release()
}

func TestAcquire_FailsWhileHeld(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	release, ok := Acquire(dir, 3, time.Millisecond)
	require.True(t, ok)
	defer release()

	_, ok2 := Acquire(dir, 2, time.Millisecond)
	assert.False(t, ok2, "second acquire should fail while first holds the lock")
}

func TestAcquire_SucceedsAfterRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	release, ok := Acquire(dir, 3, time.Millisecond)
	require.True(t, ok)
	release()

	release2, ok2 := Acquire(dir, 3, time.Millisecond)
	require.True(t, ok2)
	release2()
}

func TestAcquireWithBudget(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	release, ok := AcquireWithBudget(dir, 3*time.Second)
	require.True(t, ok)
	release()
}
