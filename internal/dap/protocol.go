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

// Package dap implements a Debug Adapter Protocol coordinator over
// stdio: length-prefixed JSON framing, request dispatch, and the
// channels that bridge the editor's request/response thread with the
// interpreter's execution thread.
package dap

import "encoding/json"

// Message is the envelope shared by requests, responses and events,
// per the DAP base protocol.
type Message struct {
	Seq        int             `json:"seq"`
	Type       string          `json:"type"`
	Command    string          `json:"command,omitempty"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	RequestSeq int             `json:"request_seq,omitempty"`
	Success    bool            `json:"success,omitempty"`
	Message    string          `json:"message,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
	Event      string          `json:"event,omitempty"`
}

// InitializeResponseBody advertises a small, deliberately narrow
// capability set: no conditional breakpoints, no reverse execution,
// no function breakpoints.
type InitializeResponseBody struct {
	SupportsConfigurationDoneRequest bool `json:"supportsConfigurationDoneRequest"`
	SupportsStepBack                 bool `json:"supportsStepBack"`
	SupportsFunctionBreakpoints      bool `json:"supportsFunctionBreakpoints"`
	SupportsConditionalBreakpoints   bool `json:"supportsConditionalBreakpoints"`
	SupportsSetVariable              bool `json:"supportsSetVariable"`
}

// LaunchArguments is the subset of the "launch" request this adapter
// understands.
type LaunchArguments struct {
	Program     string `json:"program"`
	StopOnEntry bool   `json:"stopOnEntry"`
}

// Source identifies the script file a breakpoint or stack frame
// belongs to.
type Source struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
}

// SourceBreakpoint is one requested breakpoint, by physical line.
type SourceBreakpoint struct {
	Line int `json:"line"`
}

// SetBreakpointsArguments is the body of a "setBreakpoints" request.
type SetBreakpointsArguments struct {
	Source      Source             `json:"source"`
	Breakpoints []SourceBreakpoint `json:"breakpoints"`
}

// Breakpoint echoes back one requested breakpoint's resolution.
type Breakpoint struct {
	Verified bool `json:"verified"`
	Line     int  `json:"line"`
}

// SetBreakpointsResponseBody is the body of the matching response.
type SetBreakpointsResponseBody struct {
	Breakpoints []Breakpoint `json:"breakpoints"`
}

// StoppedEventBody is sent whenever execution stops.
type StoppedEventBody struct {
	Reason   string `json:"reason"`
	ThreadId int    `json:"threadId"`
}

// OutputEventBody carries text produced by the running script.
type OutputEventBody struct {
	Category string `json:"category"`
	Output   string `json:"output"`
}

// Thread is the single thread this adapter ever reports (scripts
// execute on exactly one thread; see spec Non-goals).
type Thread struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

// ThreadsResponseBody is the body of a "threads" response.
type ThreadsResponseBody struct {
	Threads []Thread `json:"threads"`
}

// StackFrame is one synthesized call-stack entry.
type StackFrame struct {
	Id     int    `json:"id"`
	Name   string `json:"name"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// StackTraceResponseBody is the body of a "stackTrace" response.
type StackTraceResponseBody struct {
	StackFrames []StackFrame `json:"stackFrames"`
	TotalFrames int          `json:"totalFrames"`
}

// ScopesArguments is the body of a "scopes" request: the stack frame
// the editor wants the variable scopes of.
type ScopesArguments struct {
	FrameId int `json:"frameId"`
}

// Scope names one of the two variable scopes this adapter exposes for
// a given frame: that frame's locals, and the script's globals.
type Scope struct {
	Name               string `json:"name"`
	VariablesReference int    `json:"variablesReference"`
}

// ScopesResponseBody is the body of a "scopes" response.
type ScopesResponseBody struct {
	Scopes []Scope `json:"scopes"`
}

// Variable is one name/value pair reported to the editor.
type Variable struct {
	Name               string `json:"name"`
	Value              string `json:"value"`
	VariablesReference int    `json:"variablesReference"`
}

// VariablesResponseBody is the body of a "variables" response.
type VariablesResponseBody struct {
	Variables []Variable `json:"variables"`
}

const (
	// scopeRefLocalBase is offset by the requested frame id to encode
	// which frame's locals a later "variables" request is asking for:
	// variablesReference scopeRefLocalBase+i means frame i's locals.
	scopeRefLocalBase = 1000
	scopeRefGlobal    = 2
	mainThreadID      = 1
)
