// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package rawstore implements the raw builder: it expands a validated
// registration request into seq-numbered raw records, publishes them as a
// JSONL file, a parallel CSV, and a provenance .meta file under
// <RAW_ROOT>/<today>/, and runs the bounded retention sweep that deletes
// raw files older than the configured retention window.
package rawstore

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/atomicfile"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/clockutil"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/lockdir"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/log"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/exceptions"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/validator"
)

var csvColumns = []string{
	"req_id", "seq", "ns", "workload", "on_exception_247", "on_exception_out_worktime",
	"requester", "reason", "end_date", "end_input", "created_at", "created_by",
	"source_job", "source_build", "status", "hash",
}

// Builder writes raw records into RAW_ROOT.
type Builder struct {
	RawRoot string
}

// BuildResult reports the files published by one Build call.
type BuildResult struct {
	JSONLPath string
	CSVPath   string
	MetaPath  string
	Records   []exceptions.RawRecord
}

// Build expands req into one raw record per workload line and publishes
// the JSONL, CSV and .meta files for this batch under
// <RAW_ROOT>/<today>/raw-<reqID>-<build>.*.
func (b *Builder) Build(req *validator.Request, reqID, createdBy, sourceJob, sourceBuild string) (*BuildResult, error) {
	if len(req.Workloads) == 0 {
		return nil, errs.NewError().WithCode(errs.CodeMissingField).WithMessage("request has no workloads to expand")
	}

	today := clockutil.Today().Format("2006-01-02")
	createdAt := clockutil.Now().UTC().Format("2006-01-02T15:04:05Z")

	records := make([]exceptions.RawRecord, 0, len(req.Workloads))
	for i, wl := range req.Workloads {
		seq := i + 1
		rec := exceptions.RawRecord{
			ReqID:                  reqID,
			Seq:                    seq,
			NS:                     wl.NS,
			Workload:               exceptions.NormalizeWorkload(wl.Workload),
			OnException247:        req.On247,
			OnExceptionOutWorktime: req.OnOutWorktime,
			Requester:              req.Requester,
			Reason:                 req.Reason,
			EndDate:                req.EndDate,
			EndInput:               req.EndInput,
			CreatedAt:              createdAt,
			CreatedBy:              createdBy,
			SourceJob:              sourceJob,
			SourceBuild:            sourceBuild,
			Status:                 "draft",
		}
		rec.ComputeHash()
		records = append(records, rec)
	}

	base := fmt.Sprintf("raw-%s-%s", reqID, sourceBuild)
	dir := filepath.Join(b.RawRoot, today)
	jsonlPath := filepath.Join(dir, base+".jsonl")
	csvPath := filepath.Join(dir, base+".csv")
	metaPath := filepath.Join(dir, base+".meta")

	jsonlData, err := encodeJSONL(records)
	if err != nil {
		return nil, err
	}
	if err := atomicfile.Write(jsonlPath, jsonlData, 0o644); err != nil {
		return nil, errs.WrapError(err, "publishing raw jsonl", errs.CodeInternal)
	}

	csvData, err := encodeCSV(records)
	if err != nil {
		return nil, err
	}
	if err := atomicfile.Write(csvPath, csvData, 0o644); err != nil {
		return nil, errs.WrapError(err, "publishing raw csv", errs.CodeInternal)
	}

	metaData := []byte(fmt.Sprintf(
		"created_at=%s\ncreated_by=%s\njob=%s\nbuild=%s\nfiles=%s,%s\n",
		createdAt, createdBy, sourceJob, sourceBuild, filepath.Base(jsonlPath), filepath.Base(csvPath),
	))
	if err := atomicfile.Write(metaPath, metaData, 0o644); err != nil {
		return nil, errs.WrapError(err, "publishing raw meta", errs.CodeInternal)
	}

	return &BuildResult{JSONLPath: jsonlPath, CSVPath: csvPath, MetaPath: metaPath, Records: records}, nil
}

func encodeJSONL(records []exceptions.RawRecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return nil, errs.WrapError(err, "marshaling raw record", errs.CodeInternal)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func encodeCSV(records []exceptions.RawRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvColumns); err != nil {
		return nil, errs.WrapError(err, "writing csv header", errs.CodeInternal)
	}
	for _, r := range records {
		row := []string{
			r.ReqID, strconv.Itoa(r.Seq), r.NS, r.Workload,
			strconv.FormatBool(r.OnException247), strconv.FormatBool(r.OnExceptionOutWorktime),
			r.Requester, r.Reason, r.EndDate, r.EndInput, r.CreatedAt, r.CreatedBy,
			r.SourceJob, r.SourceBuild, r.Status, r.Hash,
		}
		if err := w.Write(row); err != nil {
			return nil, errs.WrapError(err, "writing csv row", errs.CodeInternal)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errs.WrapError(err, "flushing csv", errs.CodeInternal)
	}
	return buf.Bytes(), nil
}

// GCResult reports the outcome of a retention sweep.
type GCResult struct {
	Deleted []string
	Skipped bool
}

// RunRetentionGC walks RAW_ROOT for raw-*.{jsonl,csv,meta} files older than
// retainDays and deletes them, holding a mkdir-lock for the duration. If
// the lock cannot be acquired within its budget, the sweep is skipped with
// a warning log and no error (GCResult.Skipped). dryRun lists victims
// without deleting.
func RunRetentionGC(rawRoot string, retainDays int, dryRun bool) (*GCResult, error) {
	if err := guardRawRoot(rawRoot); err != nil {
		return nil, err
	}

	release, ok := lockdir.AcquireWithBudget(rawRoot, 60*time.Second)
	if !ok {
		log.Warn("retention GC: could not acquire lock on RAW_ROOT, skipping this run")
		return &GCResult{Skipped: true}, nil
	}
	defer release()

	cutoff := clockutil.Now().Add(-time.Duration(retainDays) * 24 * time.Hour)

	var deleted []string
	err := filepath.Walk(rawRoot, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		if !isRawArtifact(info.Name()) {
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		deleted = append(deleted, path)
		if !dryRun {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errs.WrapError(err, "walking RAW_ROOT for retention GC", errs.CodeInternal)
	}

	return &GCResult{Deleted: deleted}, nil
}

func isRawArtifact(name string) bool {
	if !strings.HasPrefix(name, "raw-") {
		return false
	}
	for _, ext := range []string{".jsonl", ".csv", ".meta"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func guardRawRoot(rawRoot string) error {
	if rawRoot == "" || rawRoot == "/" || !strings.Contains(rawRoot, "/exceptions/raw") {
		return errs.NewError().WithCode(errs.CodeInvalidArgument).
			WithMessage("RAW_ROOT must be non-empty, not '/', and contain '/exceptions/raw': got " + rawRoot)
	}
	return nil
}
