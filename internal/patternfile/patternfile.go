// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package patternfile reads the line-oriented UTF-8 text files that drive
// namespace selection (managed/deny regex lists) and holiday lookup (ISO
// dates), applying the shared convention: one entry per line, blank lines
// ignored, "#" starts a line comment.
package patternfile

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
)

// ReadLines returns the non-empty, non-comment lines of path with leading
// and trailing whitespace trimmed. A missing file yields an empty slice and
// no error: absent namespace/holiday files mean "match nothing".
func ReadLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.WrapError(err, "opening pattern file "+path, errs.CodeInternal)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.WrapError(err, "scanning pattern file "+path, errs.CodeInternal)
	}
	return lines, nil
}

// CompileRegexes reads path as a list of regex patterns, anchoring none of
// them implicitly (callers should anchor in the file if exact match is
// intended).
func CompileRegexes(path string) ([]*regexp.Regexp, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return nil, err
	}
	regexes := make([]*regexp.Regexp, 0, len(lines))
	for _, line := range lines {
		re, err := regexp.Compile(line)
		if err != nil {
			return nil, errs.WrapError(err, "invalid regex in "+path+": "+line, errs.CodeInvalidArgument)
		}
		regexes = append(regexes, re)
	}
	return regexes, nil
}

// NamespaceMatcher decides which cluster namespaces are managed: a
// namespace is selected if it matches any include pattern and no deny
// pattern.
type NamespaceMatcher struct {
	include []*regexp.Regexp
	deny    []*regexp.Regexp
}

// NewNamespaceMatcher loads the managed and deny pattern files.
func NewNamespaceMatcher(managedFile, denyFile string) (*NamespaceMatcher, error) {
	include, err := CompileRegexes(managedFile)
	if err != nil {
		return nil, err
	}
	deny, err := CompileRegexes(denyFile)
	if err != nil {
		return nil, err
	}
	return &NamespaceMatcher{include: include, deny: deny}, nil
}

// Matches reports whether ns is managed: included by at least one include
// pattern and excluded by none of the deny patterns.
func (m *NamespaceMatcher) Matches(ns string) bool {
	included := false
	for _, re := range m.include {
		if re.MatchString(ns) {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, re := range m.deny {
		if re.MatchString(ns) {
			return false
		}
	}
	return true
}

// Select filters candidates down to the managed namespaces, preserving
// input order.
func (m *NamespaceMatcher) Select(candidates []string) []string {
	var out []string
	for _, ns := range candidates {
		if m.Matches(ns) {
			out = append(out, ns)
		}
	}
	return out
}

// HolidaySet is a lookup of ISO calendar dates (YYYY-MM-DD) that are
// configured holidays.
type HolidaySet map[string]bool

// LoadHolidays reads path as a list of ISO dates.
func LoadHolidays(path string) (HolidaySet, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return nil, err
	}
	set := make(HolidaySet, len(lines))
	for _, l := range lines {
		set[l] = true
	}
	return set, nil
}

// IsHoliday reports whether the given ISO date (YYYY-MM-DD) is a configured
// holiday.
func (h HolidaySet) IsHoliday(isoDate string) bool {
	return h[isoDate]
}
