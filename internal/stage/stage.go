// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package stage wires each pipeline library package to the filesystem, the
// cluster client, and the process environment, recording stage execution
// metrics uniformly. Every cmd/ binary, including the exceptions-cli
// umbrella, calls into exactly one function here so invocation bookkeeping
// (timing, success/failure counters, logging) lives in one place instead of
// being duplicated per binary.
package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/atomicfile"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/log"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/metrics"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/patternfile"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/replicastate"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/activation"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/cluster"
	fakecluster "github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/cluster/fake"
	k8scluster "github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/cluster/k8s"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/dedup"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/digest"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/exceptions"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/holidays"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/rawstore"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/reconciler"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/validator"
)

// NewRequestID mints a batch request id as "<YYYYMMDDHHMMSS>-<uuid8>", the
// time-plus-random-suffix scheme registrations are identified by.
func NewRequestID(now time.Time) string {
	return now.UTC().Format("20060102150405") + "-" + uuid.New().String()[:8]
}

func timed(stageName string, fn func() error) error {
	start := time.Now()
	metrics.StageExecutionTotal.WithLabelValues(stageName).Inc()
	err := fn()
	metrics.StageLastDurationSeconds.WithLabelValues(stageName).Set(time.Since(start).Seconds())
	if err != nil {
		metrics.StageExecutionFailures.WithLabelValues(stageName).Inc()
	}
	return err
}

// Validate runs the request validator over cfg's registration payload.
func Validate(cfg *config.Config) (*validator.Request, error) {
	var req *validator.Request
	err := timed("validate", func() error {
		var verr error
		req, verr = validator.Validate(cfg)
		return verr
	})
	return req, err
}

// BuildRawResult is the outcome of BuildRawFromEnv.
type BuildRawResult struct {
	ReqID string
	Files *rawstore.BuildResult
	GC    *rawstore.GCResult
}

// BuildRawFromEnv validates cfg's registration payload and, on success,
// expands and publishes it as raw records, then runs the retention sweep.
// createdBy, sourceJob and sourceBuild are provenance fields threaded
// through from the calling CI/automation context.
func BuildRawFromEnv(cfg *config.Config, createdBy, sourceJob, sourceBuild string) (*BuildRawResult, error) {
	req, err := Validate(cfg)
	if err != nil {
		return nil, err
	}

	result := &BuildRawResult{ReqID: NewRequestID(nowForReqID(cfg))}

	err = timed("build-raw", func() error {
		builder := &rawstore.Builder{RawRoot: cfg.RawRoot}
		built, berr := builder.Build(req, result.ReqID, createdBy, sourceJob, sourceBuild)
		if berr != nil {
			return berr
		}
		result.Files = built

		gc, gerr := rawstore.RunRetentionGC(cfg.RawRoot, cfg.RetainDays, cfg.RetentionDryRun)
		if gerr != nil {
			return gerr
		}
		result.GC = gc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DedupeResult is the outcome of Dedupe: the aggregated record sets plus the
// paths they were published to.
type DedupeResult struct {
	Polished          []exceptions.PolishedRecord
	Invalid           []exceptions.InvalidRecord
	Skipped           bool
	PolishedJSONLPath string
	PolishedCSVPath   string
	InvalidPath       string
	DigestCSVPath     string
	DigestWebexMDPath string
	DigestHTMLPath    string
}

// Dedupe runs the deduplicator and publishes polished_exceptions.{jsonl,csv},
// invalid.jsonl, and the three digest_exceptions formats under cfg.OutDir.
func Dedupe(cfg *config.Config) (*DedupeResult, error) {
	var out *DedupeResult
	err := timed("dedupe", func() error {
		res, derr := dedup.Run(cfg)
		if derr != nil {
			return derr
		}
		out = &DedupeResult{Polished: res.Polished, Invalid: res.Invalid, Skipped: res.Skipped}
		if res.Skipped {
			log.Warn("dedupe: lock not acquired, skipping publication this run")
			return nil
		}

		polishedJSONL, perr := exceptions.EncodePolishedJSONL(res.Polished)
		if perr != nil {
			return perr
		}
		out.PolishedJSONLPath = filepath.Join(cfg.OutDir, "polished_exceptions.jsonl")
		if werr := writeBytes(out.PolishedJSONLPath, polishedJSONL); werr != nil {
			return werr
		}

		polishedCSV, perr := exceptions.EncodePolishedCSV(res.Polished)
		if perr != nil {
			return perr
		}
		out.PolishedCSVPath = filepath.Join(cfg.OutDir, "polished_exceptions.csv")
		if werr := writeBytes(out.PolishedCSVPath, polishedCSV); werr != nil {
			return werr
		}

		invalidJSONL, ierr := exceptions.EncodeInvalidJSONL(res.Invalid)
		if ierr != nil {
			return ierr
		}
		out.InvalidPath = filepath.Join(cfg.OutDir, "invalid.jsonl")
		if werr := writeBytes(out.InvalidPath, invalidJSONL); werr != nil {
			return werr
		}

		csvData, cerr := digest.RenderCSV(res.Polished)
		if cerr != nil {
			return cerr
		}
		out.DigestCSVPath = filepath.Join(cfg.OutDir, "digest_exceptions.csv")
		if werr := writeBytes(out.DigestCSVPath, csvData); werr != nil {
			return werr
		}

		mdData := digest.RenderMarkdown(res.Polished)
		out.DigestWebexMDPath = filepath.Join(cfg.OutDir, "digest_exceptions.webex.md")
		if werr := writeBytes(out.DigestWebexMDPath, mdData); werr != nil {
			return werr
		}

		out.DigestHTMLPath = filepath.Join(cfg.OutDir, "digest_exceptions.html")
		return writeBytes(out.DigestHTMLPath, digest.RenderHTML(mdData))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ActivateResult is the outcome of Activate.
type ActivateResult struct {
	Active          []exceptions.ActiveRecord
	ActiveJSONLPath string
	ActiveMDPath    string
}

// Activate reads the polished set published by Dedupe and projects it onto
// today, publishing active_exceptions.{jsonl,md} under cfg.OutDir.
func Activate(cfg *config.Config) (*ActivateResult, error) {
	var out *ActivateResult
	err := timed("activate", func() error {
		polishedPath := filepath.Join(cfg.OutDir, "polished_exceptions.jsonl")
		polished, rerr := readPolishedJSONL(polishedPath)
		if rerr != nil {
			return rerr
		}

		active := activation.Activate(polished, cfg.MaxDays)
		out = &ActivateResult{
			Active:          active,
			ActiveJSONLPath: filepath.Join(cfg.OutDir, "active_exceptions.jsonl"),
			ActiveMDPath:    filepath.Join(cfg.OutDir, "active_exceptions.md"),
		}

		activeJSONL, aerr := exceptions.EncodeActiveJSONL(active)
		if aerr != nil {
			return aerr
		}
		if err := writeBytes(out.ActiveJSONLPath, activeJSONL); err != nil {
			return err
		}
		return writeBytes(out.ActiveMDPath, activation.RenderMarkdownPreview(active))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BuildCluster constructs the cluster.API backend for the reconciler: the
// in-memory fake when dryRun is requested, otherwise a live
// controller-runtime-backed client.
func BuildCluster(cfg *config.Config, dryRun bool) (cluster.API, error) {
	if dryRun {
		return fakecluster.New(), nil
	}
	return k8scluster.NewFromKubeconfig(cfg.KubeconfigFile, cfg.KubeContext)
}

// Reconcile runs one reconciler tick against the given cluster backend,
// loading the namespace matcher, holiday calendar, replica state and active
// set from cfg's configured paths.
func Reconcile(ctx context.Context, cfg *config.Config, c cluster.API) (*reconciler.Result, error) {
	var out *reconciler.Result
	err := timed("reconcile", func() error {
		matcher, merr := patternfile.NewNamespaceMatcher(cfg.ManagedNSFile, cfg.DenyNSFile)
		if merr != nil {
			return merr
		}
		calendar, herr := holidays.Load(cfg.HolidaysFile)
		if herr != nil {
			return herr
		}
		statePath := filepath.Join(cfg.StateRoot, "replicas.json")
		state, serr := replicastate.Load(statePath)
		if serr != nil {
			return serr
		}

		activePath := filepath.Join(cfg.OutDir, "active_exceptions.jsonl")
		active, rerr := readActiveJSONL(activePath)
		if rerr != nil {
			return rerr
		}

		r := &reconciler.Reconciler{
			Cluster:  c,
			Matcher:  matcher,
			Calendar: calendar,
			State:    state,
			Active:   active,
			Config:   cfg,
		}
		res, rerr := reconciler.Run(ctx, r)
		if rerr != nil {
			return rerr
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func nowForReqID(cfg *config.Config) time.Time {
	if cfg.Today != "" {
		if t, err := time.Parse("2006-01-02", cfg.Today); err == nil {
			return t
		}
	}
	return time.Now()
}

func readPolishedJSONL(path string) ([]exceptions.PolishedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapError(err, "reading "+path, errs.CodeInternal)
	}
	var records []exceptions.PolishedRecord
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var r exceptions.PolishedRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, errs.WrapError(err, "parsing "+path, errs.CodeJSONParseError)
		}
		records = append(records, r)
	}
	return records, nil
}

func readActiveJSONL(path string) ([]exceptions.ActiveRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapError(err, "reading "+path, errs.CodeInternal)
	}
	var records []exceptions.ActiveRecord
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var r exceptions.ActiveRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, errs.WrapError(err, "parsing "+path, errs.CodeJSONParseError)
		}
		records = append(records, r)
	}
	return records, nil
}

func writeBytes(path string, data []byte) error {
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return errs.WrapError(err, "publishing "+path, errs.CodeInternal)
	}
	return nil
}
