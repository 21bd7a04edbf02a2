// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package rawstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/validator"
)

func TestBuild_PublishesJSONLCSVAndMeta(t *testing.T) {
	t.Setenv("TZ", "UTC")
	t.Setenv("TODAY", "2025-01-01")

	root := t.TempDir()
	b := &Builder{RawRoot: root}

	req := &validator.Request{
		On247:     true,
		Requester: "alice",
		Reason:    "launch",
		EndDate:   "2025-01-15",
		EndInput:  "20250115",
		Workloads: []validator.WorkloadRef{{NS: "team-a", Workload: "api"}, {NS: "team-a", Workload: "worker"}},
	}

	result, err := b.Build(req, "req-123", "alice", "cli", "b42")
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	assert.Equal(t, filepath.Join(root, "2025-01-01", "raw-req-123-b42.jsonl"), result.JSONLPath)
	assert.FileExists(t, result.JSONLPath)
	assert.FileExists(t, result.CSVPath)
	assert.FileExists(t, result.MetaPath)

	jsonlContent, err := os.ReadFile(result.JSONLPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(jsonlContent)), "\n")
	assert.Len(t, lines, 2)

	meta, err := os.ReadFile(result.MetaPath)
	require.NoError(t, err)
	assert.Contains(t, string(meta), "created_by=alice")
	assert.Contains(t, string(meta), "job=cli")

	assert.Equal(t, 1, result.Records[0].Seq)
	assert.Equal(t, 2, result.Records[1].Seq)
	assert.NotEmpty(t, result.Records[0].Hash)
}

func TestBuild_RejectsEmptyWorkloadList(t *testing.T) {
	b := &Builder{RawRoot: t.TempDir()}
	_, err := b.Build(&validator.Request{}, "req", "a", "j", "b")
	require.Error(t, err)
}

func TestGuardRawRoot(t *testing.T) {
	assert.Error(t, guardRawRoot(""))
	assert.Error(t, guardRawRoot("/"))
	assert.Error(t, guardRawRoot("/data/other"))
	assert.NoError(t, guardRawRoot("/data/exceptions/raw"))
}

func TestRunRetentionGC_DeletesOldArtifacts(t *testing.T) {
	root := filepath.Join(t.TempDir(), "exceptions", "raw")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024-01-01"), 0o755))

	oldFile := filepath.Join(root, "2024-01-01", "raw-old-b1.jsonl")
	require.NoError(t, os.WriteFile(oldFile, []byte("{}\n"), 0o644))
	oldTime := time.Now().Add(-200 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	newFile := filepath.Join(root, "2024-01-01", "raw-new-b1.jsonl")
	require.NoError(t, os.WriteFile(newFile, []byte("{}\n"), 0o644))

	result, err := RunRetentionGC(root, 90, false)
	require.NoError(t, err)
	assert.Contains(t, result.Deleted, oldFile)

	_, statErr := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(statErr))
	assert.FileExists(t, newFile)
}

func TestRunRetentionGC_DryRunDoesNotDelete(t *testing.T) {
	root := filepath.Join(t.TempDir(), "exceptions", "raw")
	require.NoError(t, os.MkdirAll(root, 0o755))

	oldFile := filepath.Join(root, "raw-old-b1.csv")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	oldTime := time.Now().Add(-200 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	result, err := RunRetentionGC(root, 90, true)
	require.NoError(t, err)
	assert.Contains(t, result.Deleted, oldFile)
	assert.FileExists(t, oldFile)
}
