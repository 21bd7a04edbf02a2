// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package exceptions defines the record shapes that flow through the
// ingestion, deduplication, and activation stages: RawRecord (one per
// registration line), PolishedRecord (one per (ns, workload) after
// aggregation), and ActiveRecord (today's projection of PolishedRecord).
package exceptions

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
)

// Mode values a polished/active record can carry.
const (
	Mode247        = "247"
	ModeOutWorktime = "out_worktime"
)

// WildcardToken is the single canonical spelling wildcard workloads are
// normalized to. Any of WildcardAliases on input collapse to this.
const WildcardToken = "_ALL_"

// WildcardAliases are the recognized spellings of "every workload in this
// namespace" accepted from registration requests and raw records.
var WildcardAliases = []string{"_ALL_", "__ALL__", "ALL", "*", "all-of-workload"}

// NormalizeWorkload maps any recognized wildcard spelling to WildcardToken;
// non-wildcard workload names pass through unchanged.
func NormalizeWorkload(workload string) string {
	for _, alias := range WildcardAliases {
		if strings.EqualFold(workload, alias) {
			return WildcardToken
		}
	}
	return workload
}

// IsWildcard reports whether a (already-normalized or raw) workload token
// designates every workload in its namespace.
func IsWildcard(workload string) bool {
	return NormalizeWorkload(workload) == WildcardToken
}

// RawRecord is an immutable event emitted by the raw builder. Status is
// always "draft" at this stage; Hash is a content fingerprint used only for
// diagnostics, not for dedup identity (dedup groups by (ns, workload)).
type RawRecord struct {
	ReqID                  string `json:"req_id"`
	Seq                    int    `json:"seq"`
	NS                     string `json:"ns"`
	Workload               string `json:"workload"`
	OnException247         bool   `json:"on_exception_247"`
	OnExceptionOutWorktime bool   `json:"on_exception_out_worktime"`
	Requester              string `json:"requester"`
	Reason                 string `json:"reason"`
	EndDate                string `json:"end_date"`
	EndInput               string `json:"end_input"`
	CreatedAt              string `json:"created_at"`
	CreatedBy              string `json:"created_by"`
	SourceJob              string `json:"source_job"`
	SourceBuild            string `json:"source_build"`
	Status                 string `json:"status"`
	Hash                   string `json:"hash"`
}

// rawRecordAlias lets UnmarshalJSON decode into the real field set while
// also reading a source document's raw keys for the typo-tolerant fields.
type rawRecordAlias RawRecord

// UnmarshalJSON accepts both the correct "on_exception_*" spelling and the
// historical "on_exeption_*" typo; RawRecord itself, and everything this
// package re-emits, always use the corrected spelling.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	var alias rawRecordAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*r = RawRecord(alias)

	var typoProbe struct {
		On247Typo *bool `json:"on_exeption_247"`
		OnOutTypo *bool `json:"on_exeption_out_worktime"`
	}
	if err := json.Unmarshal(data, &typoProbe); err == nil {
		if typoProbe.On247Typo != nil {
			r.OnException247 = r.OnException247 || *typoProbe.On247Typo
		}
		if typoProbe.OnOutTypo != nil {
			r.OnExceptionOutWorktime = r.OnExceptionOutWorktime || *typoProbe.OnOutTypo
		}
	}
	return nil
}

// ComputeHash fills Hash with the SHA-256 hex digest of the content
// fingerprint specified by the data model: ns|wl|end_date|m247|mow|requester|reason.
func (r *RawRecord) ComputeHash() {
	r.Hash = ContentHash(r.NS, r.Workload, r.EndDate, r.OnException247, r.OnExceptionOutWorktime, r.Requester, r.Reason)
}

// ContentHash computes the SHA-256 hex digest of a record's fingerprint.
func ContentHash(ns, workload, endDate string, m247, mow bool, requester, reason string) string {
	fingerprint := fmt.Sprintf("%s|%s|%s|%t|%t|%s|%s", ns, workload, endDate, m247, mow, requester, reason)
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}

// SourceToken formats the provenance token "<filename>:<req_id>#<seq>".
func SourceToken(filename, reqID string, seq int) string {
	return fmt.Sprintf("%s:%s#%d", filename, reqID, seq)
}

// PolishedRecord is the single aggregated exception for one (ns, workload)
// key, produced by the deduplicator.
type PolishedRecord struct {
	NS            string   `json:"ns"`
	Workload      string   `json:"workload"`
	ModeEffective string   `json:"mode_effective"`
	Modes         []string `json:"modes"`
	EndDate       string   `json:"end_date"`
	DaysLeft      int      `json:"days_left"`
	Requesters    []string `json:"requesters"`
	Reasons       []string `json:"reasons"`
	Patchers      []string `json:"patchers"`
	Sources       []string `json:"sources"`
	SourcesCount  int      `json:"sources_count"`
	LastUpdatedAt string   `json:"last_updated_at"`
}

// Canonicalize sorts every set-valued field so repeated runs over the same
// input produce byte-identical output (the idempotence invariant).
func (p *PolishedRecord) Canonicalize() {
	sort.Strings(p.Modes)
	sort.Strings(p.Requesters)
	sort.Strings(p.Reasons)
	sort.Strings(p.Patchers)
	sort.Strings(p.Sources)
	p.SourcesCount = len(p.Sources)
}

// Key returns the (ns, workload) grouping identity.
func (p *PolishedRecord) Key() string {
	return p.NS + "|" + p.Workload
}

var polishedCSVColumns = []string{
	"ns", "workload", "mode_effective", "modes", "end_date", "days_left",
	"requesters", "reasons", "patchers", "sources_count", "last_updated_at",
}

// EncodePolishedJSONL renders records as one JSON object per line, the
// polished_exceptions.jsonl schema.
func EncodePolishedJSONL(records []PolishedRecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return nil, errs.WrapError(err, "marshaling polished record", errs.CodeInternal)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// EncodePolishedCSV renders records as the polished_exceptions.csv table:
// set-valued fields are joined with ";" since CSV has no native list type.
func EncodePolishedCSV(records []PolishedRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(polishedCSVColumns); err != nil {
		return nil, errs.WrapError(err, "writing polished csv header", errs.CodeInternal)
	}
	for _, r := range records {
		row := []string{
			r.NS, r.Workload, r.ModeEffective, strings.Join(r.Modes, ";"), r.EndDate, strconv.Itoa(r.DaysLeft),
			strings.Join(r.Requesters, ";"), strings.Join(r.Reasons, ";"), strings.Join(r.Patchers, ";"),
			strconv.Itoa(r.SourcesCount), r.LastUpdatedAt,
		}
		if err := w.Write(row); err != nil {
			return nil, errs.WrapError(err, "writing polished csv row", errs.CodeInternal)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errs.WrapError(err, "flushing polished csv", errs.CodeInternal)
	}
	return buf.Bytes(), nil
}

// EncodeActiveJSONL renders records as one JSON object per line, the
// active_exceptions.jsonl schema.
func EncodeActiveJSONL(records []ActiveRecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return nil, errs.WrapError(err, "marshaling active record", errs.CodeInternal)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// EncodeInvalidJSONL renders records as one JSON object per line, the
// invalid.jsonl schema.
func EncodeInvalidJSONL(records []InvalidRecord) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return nil, errs.WrapError(err, "marshaling invalid record", errs.CodeInternal)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// ActiveRecord is the per-day projection of a PolishedRecord emitted by the
// activator.
type ActiveRecord struct {
	NS         string   `json:"ns"`
	Workload   string   `json:"workload"`
	Mode       string   `json:"mode"`
	EndDate    string   `json:"end_date"`
	DaysLeft   int       `json:"days_left"`
	Requesters []string `json:"requesters"`
	Patchers   []string `json:"patchers"`
}

// InvalidRecord documents a raw record or group that could not be
// polished/activated, with a machine-readable reason tag.
type InvalidRecord struct {
	NS        string `json:"ns,omitempty"`
	Workload  string `json:"workload,omitempty"`
	Reason    string `json:"reason"`
	LatestEnd string `json:"latest_end,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Invalid reason tags.
const (
	ReasonJSONParseError     = "json_parse_error"
	ReasonMissingNSOrWL      = "missing_ns_or_workload"
	ReasonNoMode             = "no_mode"
	ReasonAllOutsideWindow   = "all_outside_window"
	ReasonMissingEndDate     = "missing_end_date"
)

// ReplicaStateEntry is the persisted previous-replica-count record, keyed by
// "ns|kind|name" in the replica-state store.
type ReplicaStateEntry struct {
	PrevReplicas int32   `json:"prev_replicas"`
	LastUp       float64 `json:"last_up,omitempty"`
	LastDown     float64 `json:"last_down,omitempty"`
}

// ReplicaStateKey formats the "ns|kind|name" key used by the replica-state store.
func ReplicaStateKey(ns, kind, name string) string {
	return ns + "|" + kind + "|" + name
}
