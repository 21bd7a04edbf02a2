// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

// Package errs provides a coded error type shared across the exception
// pipeline and the scaling reconciler. Errors carry a numeric code so
// callers at process boundaries (cmd/ entrypoints) can translate a failure
// into the exit codes required by the external interface, plus a captured
// stack for diagnosing infrastructure failures after the fact.
package errs

import (
	"fmt"
	"runtime"
	"strings"
)

// Code bands, mirroring the disposition table in the error-handling design:
// 3xxx validation/policy, 6xxx infrastructure (including cluster API
// errors), 7xxx initialization, 8xxx remote service / invalid argument,
// 9xxx concurrency.
const (
	CodeMissingField      = 3001
	CodeInvalidDate       = 3002
	CodeDateOutOfRange    = 3003
	CodeJSONParseError    = 3004
	CodeMissingKey        = 3005
	CodeNoMode            = 3006
	CodeOutsideWindow     = 3007
	CodeMissingEndDate    = 3008

	CodeInternal   = 6000
	CodeClientErr  = 6001
	CodeK8SError   = 6002
	CodeNamespaces = 6003

	CodeInitializeError = 7001
	CodeLackOfConfig    = 7002

	CodeRemoteServiceError = 8001
	CodeInvalidArgument    = 8002

	CodeLockTimeout = 9001
)

// Error is a coded, stack-carrying error.
type Error struct {
	Code       int
	Message    string
	InnerError error
	Stack      []runtime.Frame
}

// NewError creates an empty Error, capturing the current call stack.
func NewError() *Error {
	return &Error{Stack: captureStack(2)}
}

// WithCode sets the numeric code and returns the receiver for chaining.
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// WithMessage sets the message and returns the receiver for chaining.
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

// WithMessagef sets a formatted message and returns the receiver for chaining.
func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// WithError sets the wrapped inner error and returns the receiver for chaining.
func (e *Error) WithError(err error) *Error {
	e.InnerError = err
	return e
}

// Unwrap allows errors.Is/errors.As to see through to the inner error.
func (e *Error) Unwrap() error {
	return e.InnerError
}

// Error renders the error. Format: "[error <inner>] code <n> message <msg> stack <stack>".
func (e *Error) Error() string {
	var b strings.Builder
	if e.InnerError != nil {
		b.WriteString("error ")
		b.WriteString(e.InnerError.Error())
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "code %d message %s stack %s", e.Code, e.Message, e.GetStackString())
	return b.String()
}

// GetStackString renders the captured stack as "file:line funcName" lines.
func (e *Error) GetStackString() string {
	var b strings.Builder
	for _, f := range e.Stack {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:%d %s", shortFile(f.File), f.Line, shortFunc(f.Function))
	}
	return b.String()
}

// WrapError builds a coded Error wrapping an existing error with a message and code.
func WrapError(err error, message string, code int) *Error {
	e := NewError()
	e.Code = code
	e.Message = message
	e.InnerError = err
	return e
}

// WrapMessage builds a coded Error with just a message and code, no inner error.
func WrapMessage(message string, code int) *Error {
	e := NewError()
	e.Code = code
	e.Message = message
	return e
}

func captureStack(skip int) []runtime.Frame {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return nil
	}
	frameIter := runtime.CallersFrames(pcs[:n])
	frames := make([]runtime.Frame, 0, n)
	for {
		frame, more := frameIter.Next()
		frames = append(frames, frame)
		if !more {
			break
		}
	}
	return frames
}

func shortFile(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func shortFunc(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
