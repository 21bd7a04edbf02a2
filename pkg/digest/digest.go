// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package digest renders the polished exception set into the three
// human-consumption formats: a CSV table, a Webex-flavored markdown
// summary, and an HTML page rendered from that markdown via
// gomarkdown/markdown, following the renderer pattern used for the weekly
// usage report.
package digest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/pkg/exceptions"
)

const soonThresholdDays = 3

var csvColumns = []string{"ns", "workload", "mode_effective", "end_date", "days_left", "requesters", "sources_count"}

// RenderCSV writes the digest as a flat CSV table, one row per polished
// record in the order given.
func RenderCSV(records []exceptions.PolishedRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvColumns); err != nil {
		return nil, errs.WrapError(err, "writing digest csv header", errs.CodeInternal)
	}
	for _, r := range records {
		row := []string{
			r.NS, r.Workload, r.ModeEffective, r.EndDate, strconv.Itoa(r.DaysLeft),
			strings.Join(r.Requesters, ","), strconv.Itoa(r.SourcesCount),
		}
		if err := w.Write(row); err != nil {
			return nil, errs.WrapError(err, "writing digest csv row", errs.CodeInternal)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errs.WrapError(err, "flushing digest csv", errs.CodeInternal)
	}
	return buf.Bytes(), nil
}

// RenderMarkdown renders the digest as a Webex-flavored markdown table,
// tagging records with days_left <= soonThresholdDays.
func RenderMarkdown(records []exceptions.PolishedRecord) []byte {
	var b strings.Builder
	b.WriteString("### Active Workload Exceptions\n\n")
	b.WriteString("| NS | Workload | Mode | End Date | Days Left | Requesters |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range records {
		marker := ""
		if r.DaysLeft <= soonThresholdDays {
			marker = "⚠️ "
		}
		fmt.Fprintf(&b, "| %s%s | %s | %s | %s | %d | %s |\n",
			marker, r.NS, r.Workload, r.ModeEffective, r.EndDate, r.DaysLeft, strings.Join(r.Requesters, ", "))
	}
	return []byte(b.String())
}

// RenderHTML converts a markdown digest (as produced by RenderMarkdown)
// into a standalone HTML fragment.
func RenderHTML(mdDigest []byte) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse(mdDigest)

	opts := mdhtml.RendererOptions{Flags: mdhtml.CommonFlags}
	renderer := mdhtml.NewRenderer(opts)
	return markdown.Render(doc, renderer)
}
