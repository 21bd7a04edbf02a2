// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package log is a small facade over logrus shared by every pipeline stage.
// It exists so stages don't each configure their own formatter/level and so
// DEBUG and LOG_FORMAT are honored in exactly one place.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is a type alias for structured logging key/value pairs.
type Fields = logrus.Fields

var base = logrus.New()

func init() {
	base.SetOutput(os.Stderr)
	Configure(os.Getenv("DEBUG") != "" && os.Getenv("DEBUG") != "0", os.Getenv("LOG_FORMAT"))
}

// Configure sets the global level and formatter. format is "json" or "console"
// (default); debug raises the level to Debug regardless of format.
func Configure(debug bool, format string) {
	if debug {
		base.SetLevel(logrus.DebugLevel)
	} else {
		base.SetLevel(logrus.InfoLevel)
	}
	switch format {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// WithFields returns a structured entry for the global logger.
func WithFields(fields Fields) *logrus.Entry {
	return base.WithFields(fields)
}

func Debugf(format string, args ...interface{}) { base.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { base.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { base.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { base.Errorf(format, args...) }

func Debug(args ...interface{}) { base.Debug(args...) }
func Info(args ...interface{})  { base.Info(args...) }
func Warn(args ...interface{})  { base.Warn(args...) }
func Error(args ...interface{}) { base.Error(args...) }

// Fatalf logs at error level then exits with status 1. Callers that need a
// specific exit code per §6 should log with Errorf and os.Exit themselves.
func Fatalf(format string, args ...interface{}) {
	base.Errorf(format, args...)
	os.Exit(1)
}
