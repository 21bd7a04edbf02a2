// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_CreatesFileAndNoTmpLeftover(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sub", "polished.jsonl")

	require.NoError(t, Write(target, []byte("hello\n"), 0o644))

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))

	_, err = os.Stat(target + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should not remain after rename")
}

func TestWrite_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "active.jsonl")

	require.NoError(t, Write(target, []byte("v1"), 0o644))
	require.NoError(t, Write(target, []byte("v2"), 0o644))

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(content))
}

func TestAppendLine(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "raw.jsonl")

	require.NoError(t, AppendLine(target, []byte(`{"seq":1}`)))
	require.NoError(t, AppendLine(target, []byte(`{"seq":2}`+"\n")))

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "{\"seq\":1}\n{\"seq\":2}\n", string(content))
}
