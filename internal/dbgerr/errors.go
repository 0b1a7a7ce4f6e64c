// Copyright © 2026 The batchdbg Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dbgerr defines the closed error taxonomy the debugger engine
// uses to distinguish fatal failures from conditions a caller should
// recover from (spec taxonomy: IoError, UnknownLabel, CommandTimeout,
// ParseError, ProtocolError).
package dbgerr

import "fmt"

// Code identifies which member of the taxonomy an Error belongs to.
type Code string

const (
	// IoError is any child-pipe or file failure. Fatal to the session.
	IoError Code = "IoError"
	// UnknownLabel is raised when CALL/GOTO targets a label that does
	// not exist. Fatal to the current script execution.
	UnknownLabel Code = "UnknownLabel"
	// CommandTimeout is local and non-fatal: the offending command's
	// exit code is reported as non-zero and execution continues.
	CommandTimeout Code = "CommandTimeout"
	// ParseError is never raised by the preprocessor; malformed
	// constructs surface via the shell's own exit codes instead.
	ParseError Code = "ParseError"
	// ProtocolError marks a malformed DAP frame: the coordinator logs
	// and drops it, the connection stays open.
	ProtocolError Code = "ProtocolError"
)

// Error is a taxonomy-tagged error.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a taxonomy error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap tags an existing error with a taxonomy code.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Message: cause.Error(), Cause: cause}
}

// Fatal reports whether a taxonomy member is fatal to the whole
// debugging session, per spec: IoError and UnknownLabel bubble up and
// end the session; CommandTimeout and ProtocolError do not.
func Fatal(code Code) bool {
	switch code {
	case IoError, UnknownLabel:
		return true
	default:
		return false
	}
}

// CodeOf extracts the taxonomy code from err, if any.
func CodeOf(err error) (Code, bool) {
	var e *Error
	for err != nil {
		if te, ok := err.(*Error); ok {
			e = te
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return "", false
	}
	return e.Code, true
}
