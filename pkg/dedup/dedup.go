// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package dedup implements the deduplicator: it streams every raw record
// within the lookback window, groups them by (ns, workload), and folds each
// group down to one polished record with a dedicated aggregate step. This
// is the two-phase groups-then-aggregate variant, with explicit per-group
// candidate retention rather than a single streaming accumulate, matching
// the newer of the two source variants.
package dedup

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/clockutil"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/config"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/lockdir"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/log"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/metrics"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/exceptions"
)

// Result is the complete output of one deduplication run.
type Result struct {
	Polished []exceptions.PolishedRecord
	Invalid  []exceptions.InvalidRecord
	Skipped  bool
}

// group accumulates every raw record observed for one (ns, workload) key,
// the candidate-retention step of the two-phase algorithm.
type group struct {
	ns         string
	workload   string
	candidates []exceptions.RawRecord
}

// Run executes one deduplication pass: acquire the output lock, enumerate
// and parse raw files, group by (ns, workload), aggregate each group, and
// return the resulting polished and invalid record sets. It does not write
// any files itself; callers (internal/stage.Dedupe) are responsible for
// publication so this function stays a pure, testable transform of its
// inputs plus "today".
func Run(cfg *config.Config) (*Result, error) {
	release, ok := lockdir.AcquireWithBudget(cfg.OutDir, 120*time.Second)
	if !ok {
		log.Warn("deduplicator: could not acquire lock on OUT_DIR, exiting cleanly")
		return &Result{Skipped: true}, nil
	}
	defer release()

	files, err := enumerateRawFiles(cfg.RawRoot, cfg.LookbackDays)
	if err != nil {
		return nil, err
	}

	groups := map[string]*group{}
	var invalid []exceptions.InvalidRecord

	for _, file := range files {
		recs, invs, err := parseRawFile(file)
		if err != nil {
			return nil, err
		}
		invalid = append(invalid, invs...)
		for _, r := range recs {
			if cfg.FilterNS != "" && r.NS != cfg.FilterNS {
				continue
			}
			if cfg.FilterWL != "" && r.Workload != cfg.FilterWL {
				continue
			}
			key := groupKey(r.NS, r.Workload)
			g, ok := groups[key]
			if !ok {
				g = &group{ns: r.NS, workload: r.Workload}
				groups[key] = g
			}
			g.candidates = append(g.candidates, r)
		}
	}

	today := clockutil.Today()

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var polished []exceptions.PolishedRecord
	for _, k := range keys {
		g := groups[k]
		p, inv, err := aggregateFor(g, today, cfg.MaxDays)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			invalid = append(invalid, *inv)
			metrics.InvalidRecordsTotal.WithLabelValues(inv.Reason).Inc()
			continue
		}
		polished = append(polished, *p)
	}

	sort.Slice(polished, func(i, j int) bool {
		return strings.ToLower(polished[i].Key()) < strings.ToLower(polished[j].Key())
	})

	return &Result{Polished: polished, Invalid: invalid}, nil
}

func groupKey(ns, workload string) string {
	return ns + "|" + exceptions.NormalizeWorkload(workload)
}

// aggregateFor folds one group's candidate raw records into a single
// polished record (or an invalid record if no candidate end-date falls
// inside the policy window).
func aggregateFor(g *group, today time.Time, maxDays int) (*exceptions.PolishedRecord, *exceptions.InvalidRecord, error) {
	var (
		modes         = map[string]bool{}
		requesters    = map[string]bool{}
		reasons       = map[string]bool{}
		patchers      = map[string]bool{}
		sources       []string
		lastUpdatedAt string

		bestEndDate string
		bestDays    int
		haveBest    bool
		latestEnd   string
		anyParsed   bool
	)

	for _, r := range g.candidates {
		if r.OnException247 {
			modes[exceptions.Mode247] = true
		}
		if r.OnExceptionOutWorktime {
			modes[exceptions.ModeOutWorktime] = true
		}
		requesters[r.Requester] = true
		reasons[r.Reason] = true
		patchers[r.CreatedBy] = true
		sources = append(sources, exceptions.SourceToken(sourceFilename(r), r.ReqID, r.Seq))
		if r.CreatedAt > lastUpdatedAt {
			lastUpdatedAt = r.CreatedAt
		}

		parsed, err := time.Parse("2006-01-02", r.EndDate)
		if err != nil {
			continue
		}
		anyParsed = true
		if r.EndDate > latestEnd {
			latestEnd = r.EndDate
		}

		days := clockutil.DaysBetween(today, parsed)
		if days < 0 || days > maxDays {
			continue
		}
		if !haveBest || r.EndDate > bestEndDate {
			bestEndDate = r.EndDate
			bestDays = days
			haveBest = true
		}
	}

	if !haveBest {
		reason := exceptions.ReasonAllOutsideWindow
		if !anyParsed {
			reason = exceptions.ReasonMissingEndDate
		}
		return nil, &exceptions.InvalidRecord{
			NS: g.ns, Workload: g.workload, Reason: reason, LatestEnd: latestEnd,
		}, nil
	}

	modeEffective := exceptions.ModeOutWorktime
	if modes[exceptions.Mode247] {
		modeEffective = exceptions.Mode247
	}

	p := &exceptions.PolishedRecord{
		NS:            g.ns,
		Workload:      exceptions.NormalizeWorkload(g.workload),
		ModeEffective: modeEffective,
		Modes:         setKeys(modes),
		EndDate:       bestEndDate,
		DaysLeft:      bestDays,
		Requesters:    setKeys(requesters),
		Reasons:       setKeys(reasons),
		Patchers:      setKeys(patchers),
		Sources:       sources,
		LastUpdatedAt: lastUpdatedAt,
	}
	p.Canonicalize()
	return p, nil, nil
}

func setKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func sourceFilename(r exceptions.RawRecord) string {
	return "raw-" + r.ReqID + "-" + r.SourceBuild + ".jsonl"
}

func enumerateRawFiles(rawRoot string, lookbackDays int) ([]string, error) {
	cutoff := clockutil.Now().Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	var files []string
	err := filepath.Walk(rawRoot, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasPrefix(info.Name(), "raw-") || !strings.HasSuffix(info.Name(), ".jsonl") {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, errs.WrapError(err, "enumerating raw files under "+rawRoot, errs.CodeInternal)
	}
	sort.Strings(files)
	return files, nil
}

func parseRawFile(path string) ([]exceptions.RawRecord, []exceptions.InvalidRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errs.WrapError(err, "opening raw file "+path, errs.CodeInternal)
	}
	defer f.Close()

	var recs []exceptions.RawRecord
	var invalid []exceptions.InvalidRecord

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var r exceptions.RawRecord
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			invalid = append(invalid, exceptions.InvalidRecord{
				Reason: exceptions.ReasonJSONParseError,
				Detail: err.Error(),
				Source: filepath.Base(path),
			})
			continue
		}
		if r.NS == "" || r.Workload == "" {
			invalid = append(invalid, exceptions.InvalidRecord{
				NS: r.NS, Workload: r.Workload,
				Reason: exceptions.ReasonMissingNSOrWL, Source: filepath.Base(path),
			})
			continue
		}
		if !r.OnException247 && !r.OnExceptionOutWorktime {
			invalid = append(invalid, exceptions.InvalidRecord{
				NS: r.NS, Workload: r.Workload,
				Reason: exceptions.ReasonNoMode, Source: filepath.Base(path),
			})
			continue
		}
		recs = append(recs, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errs.WrapError(err, "scanning raw file "+path, errs.CodeInternal)
	}
	return recs, invalid, nil
}
