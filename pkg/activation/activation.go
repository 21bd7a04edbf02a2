// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package activation implements the activator: it projects the polished
// exception set onto "today", emitting one active record per in-window
// record, with at most one wildcard record surviving per namespace (latest
// end_date wins). Precedence between a wildcard and a specific record for
// the same namespace is explicitly NOT resolved here; both are emitted and
// the reconciler decides at decision time.
package activation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/exceptions"
)

// Activate projects polished into the active record set valid for today,
// given the policy window maxDays.
func Activate(polished []exceptions.PolishedRecord, maxDays int) []exceptions.ActiveRecord {
	wildcards := map[string]exceptions.PolishedRecord{}
	var specific []exceptions.PolishedRecord

	for _, p := range polished {
		if p.ModeEffective != exceptions.Mode247 && p.ModeEffective != exceptions.ModeOutWorktime {
			continue
		}
		if p.DaysLeft < 0 || p.DaysLeft > maxDays {
			continue
		}
		if exceptions.IsWildcard(p.Workload) {
			existing, ok := wildcards[p.NS]
			if !ok || p.EndDate > existing.EndDate {
				wildcards[p.NS] = p
			}
			continue
		}
		specific = append(specific, p)
	}

	active := make([]exceptions.ActiveRecord, 0, len(specific)+len(wildcards))
	for _, p := range specific {
		active = append(active, toActive(p))
	}
	for _, p := range wildcards {
		active = append(active, toActive(p))
	}

	sort.Slice(active, func(i, j int) bool {
		ki := strings.ToLower(active[i].NS + "|" + active[i].Workload)
		kj := strings.ToLower(active[j].NS + "|" + active[j].Workload)
		return ki < kj
	})
	return active
}

func toActive(p exceptions.PolishedRecord) exceptions.ActiveRecord {
	return exceptions.ActiveRecord{
		NS:         p.NS,
		Workload:   exceptions.NormalizeWorkload(p.Workload),
		Mode:       p.ModeEffective,
		EndDate:    p.EndDate,
		DaysLeft:   p.DaysLeft,
		Requesters: append([]string(nil), p.Requesters...),
		Patchers:   append([]string(nil), p.Patchers...),
	}
}

// RenderMarkdownPreview renders a human-readable preview of the active set.
func RenderMarkdownPreview(active []exceptions.ActiveRecord) []byte {
	var b strings.Builder
	b.WriteString("### Active Exceptions\n\n")
	b.WriteString("| NS | Workload | Mode | End Date | Days Left |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, a := range active {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d |\n", a.NS, a.Workload, a.Mode, a.EndDate, a.DaysLeft)
	}
	return []byte(b.String())
}
