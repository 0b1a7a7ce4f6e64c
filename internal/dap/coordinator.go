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

package dap

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/batchdbg/batchdbg/internal/dbgctx"
	"github.com/batchdbg/batchdbg/internal/interp"
	"github.com/batchdbg/batchdbg/internal/labels"
	"github.com/batchdbg/batchdbg/internal/preprocess"
)

// the channel capacities approximate the "unbounded queue" the
// ordering guarantee between output and stopped events relies on.
const channelCapacity = 1024

// SessionFactory starts a new child session. Swapped out in tests.
type SessionFactory func() (dbgctx.Session, error)

// Coordinator runs the DAP read/dispatch loop on the main goroutine
// and the interpreter on a second goroutine, bridged by stopCh and
// outputCh.
type Coordinator struct {
	r  *bufio.Reader
	w  io.Writer
	wMu sync.Mutex
	seq int64

	readFile   func(path string) ([]byte, error)
	newSession SessionFactory

	pre        preprocess.Result
	labelsPhys labels.Map
	ctx        *dbgctx.Context

	frameCh  chan []byte
	stopCh   chan interp.StopEvent
	outputCh chan string
}

// NewCoordinator builds a Coordinator reading DAP frames from r and
// writing them to w (ordinarily os.Stdin/os.Stdout).
func NewCoordinator(r io.Reader, w io.Writer) *Coordinator {
	return &Coordinator{
		r:        bufio.NewReaderSize(r, 64*1024),
		w:        w,
		readFile: os.ReadFile,
		newSession: func() (dbgctx.Session, error) {
			return newDefaultSession()
		},
		frameCh:  make(chan []byte, channelCapacity),
		stopCh:   make(chan interp.StopEvent, channelCapacity),
		outputCh: make(chan string, channelCapacity),
	}
}

// Run drives the coordinator until the editor disconnects or stdin
// closes.
func (c *Coordinator) Run() error {
	go c.readFrames()

	for {
		select {
		case frame, ok := <-c.frameCh:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal(frame, &msg); err != nil {
				log.Printf("dap: dropping malformed frame: %v", err)
				continue
			}
			if c.dispatch(&msg) {
				return nil
			}
		case ev := <-c.stopCh:
			c.drainOutputNonBlocking()
			c.emitStopped(ev)
		case out := <-c.outputCh:
			c.emitOutput(out)
		}
	}
}

func (c *Coordinator) readFrames() {
	defer close(c.frameCh)
	for {
		n, err := readContentLength(c.r)
		if err != nil {
			return
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(c.r, buf); err != nil {
			return
		}
		c.frameCh <- buf
	}
}

func readContentLength(r *bufio.Reader) (int, error) {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return 0, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "Content-Length:") {
			v := strings.TrimSpace(strings.TrimPrefix(line, "Content-Length:"))
			if n, convErr := strconv.Atoi(v); convErr == nil {
				length = n
			}
		}
	}
	if length < 0 {
		return 0, errors.New("dap: missing Content-Length header")
	}
	return length, nil
}

func (c *Coordinator) writeFrame(payload []byte) {
	c.wMu.Lock()
	defer c.wMu.Unlock()
	fmt.Fprintf(c.w, "Content-Length: %d\r\n\r\n", len(payload))
	c.w.Write(payload)
}

func (c *Coordinator) nextSeq() int {
	return int(atomic.AddInt64(&c.seq, 1))
}

func (c *Coordinator) sendResponse(req *Message, success bool, body interface{}) {
	var raw json.RawMessage
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	m := Message{
		Seq:        c.nextSeq(),
		Type:       "response",
		RequestSeq: req.Seq,
		Success:    success,
		Command:    req.Command,
		Body:       raw,
	}
	data, _ := json.Marshal(m)
	c.writeFrame(data)
}

func (c *Coordinator) sendEvent(event string, body interface{}) {
	var raw json.RawMessage
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	m := Message{
		Seq:   c.nextSeq(),
		Type:  "event",
		Event: event,
		Body:  raw,
	}
	data, _ := json.Marshal(m)
	c.writeFrame(data)
}

func (c *Coordinator) drainOutputNonBlocking() {
	for {
		select {
		case out := <-c.outputCh:
			c.emitOutput(out)
		default:
			return
		}
	}
}

func (c *Coordinator) emitOutput(text string) {
	c.sendEvent("output", OutputEventBody{Category: "stdout", Output: text})
}

func (c *Coordinator) emitStopped(ev interp.StopEvent) {
	if ev.Reason == interp.ReasonTerminated {
		c.sendEvent("terminated", nil)
		return
	}
	c.sendEvent("stopped", StoppedEventBody{Reason: string(ev.Reason), ThreadId: mainThreadID})
}

// dispatch handles one request; it returns true when the connection
// should close.
func (c *Coordinator) dispatch(msg *Message) bool {
	switch msg.Command {
	case "initialize":
		c.handleInitialize(msg)
	case "launch", "attach":
		c.handleLaunch(msg)
	case "setBreakpoints":
		c.handleSetBreakpoints(msg)
	case "configurationDone":
		c.sendResponse(msg, true, nil)
	case "threads":
		c.handleThreads(msg)
	case "stackTrace":
		c.handleStackTrace(msg)
	case "scopes":
		c.handleScopes(msg)
	case "variables":
		c.handleVariables(msg)
	case "continue":
		c.handleResume(msg, dbgctx.ModeContinue)
	case "next":
		c.handleResume(msg, dbgctx.ModeStepOver)
	case "stepIn":
		c.handleResume(msg, dbgctx.ModeStepInto)
	case "stepOut":
		c.handleResume(msg, dbgctx.ModeStepOut)
	case "pause":
		c.handlePause(msg)
	case "disconnect":
		c.sendResponse(msg, true, nil)
		if c.ctx != nil {
			c.ctx.CloseSession()
		}
		return true
	default:
		c.sendResponse(msg, false, nil)
	}
	return false
}

func (c *Coordinator) handleInitialize(msg *Message) {
	c.sendResponse(msg, true, InitializeResponseBody{
		SupportsConfigurationDoneRequest: true,
		SupportsStepBack:                 false,
		SupportsFunctionBreakpoints:      false,
		SupportsConditionalBreakpoints:   false,
		SupportsSetVariable:              false,
	})
	c.sendEvent("initialized", nil)
}

// handleLaunch reads and preprocesses the script, builds the label
// index, starts a session, constructs the debug context, spawns the
// interpreter on a background goroutine, and blocks until the
// interpreter's first stop (or immediate termination) before reporting
// it to the editor.
func (c *Coordinator) handleLaunch(msg *Message) {
	var args LaunchArguments
	if len(msg.Arguments) > 0 {
		json.Unmarshal(msg.Arguments, &args)
	}

	data, err := c.readFile(args.Program)
	if err != nil {
		c.sendResponse(msg, false, nil)
		return
	}

	physical := preprocess.SplitPhysicalLines(string(data))
	c.pre = preprocess.Preprocess(physical)
	c.labelsPhys = labels.Build(physical)

	sess, err := c.newSession()
	if err != nil {
		c.sendResponse(msg, false, nil)
		return
	}
	c.ctx = dbgctx.New(sess)
	if args.StopOnEntry {
		c.ctx.SetMode(dbgctx.ModeStepInto)
	} else {
		c.ctx.SetMode(dbgctx.ModeContinue)
	}

	c.sendResponse(msg, true, nil)

	hooks := interp.Hooks{
		StopOnEntry: args.StopOnEntry,
		Interactive: false,
		OnStop:      func(ev interp.StopEvent) { c.stopCh <- ev },
		OnOutput:    func(s string) { c.outputCh <- s },
		OnTerminated: func() {
			c.stopCh <- interp.StopEvent{Reason: interp.ReasonTerminated}
		},
	}
	it := interp.New(c.pre, c.labelsPhys, c.ctx, hooks)
	go it.Run()

	ev := <-c.stopCh
	c.drainOutputNonBlocking()
	c.emitStopped(ev)
}

// handleSetBreakpoints replaces the full breakpoint set for the
// script, echoing back one verified record per mapped line.
func (c *Coordinator) handleSetBreakpoints(msg *Message) {
	var args SetBreakpointsArguments
	if len(msg.Arguments) > 0 {
		json.Unmarshal(msg.Arguments, &args)
	}

	if c.ctx == nil {
		c.sendResponse(msg, true, SetBreakpointsResponseBody{})
		return
	}

	c.ctx.ClearBreakpoints()
	result := make([]Breakpoint, 0, len(args.Breakpoints))
	for _, bp := range args.Breakpoints {
		physIdx := bp.Line - 1
		if physIdx < 0 || physIdx >= len(c.pre.PhysToLogical) {
			result = append(result, Breakpoint{Verified: false, Line: bp.Line})
			continue
		}
		logicalIdx := c.pre.PhysToLogical[physIdx]
		c.ctx.AddBreakpoint(logicalIdx)
		result = append(result, Breakpoint{Verified: true, Line: bp.Line})
	}
	c.sendResponse(msg, true, SetBreakpointsResponseBody{Breakpoints: result})
}

func (c *Coordinator) handleThreads(msg *Message) {
	c.sendResponse(msg, true, ThreadsResponseBody{
		Threads: []Thread{{Id: mainThreadID, Name: "main"}},
	})
}

// handleStackTrace reports the innermost frame as the current logical
// line's physical start, and each older frame from its return PC
// mapped back to a physical line.
func (c *Coordinator) handleStackTrace(msg *Message) {
	if c.ctx == nil {
		c.sendResponse(msg, true, StackTraceResponseBody{})
		return
	}

	var frames []StackFrame
	if cur, ok := c.ctx.CurrentLine(); ok && cur < len(c.pre.Logical) {
		frames = append(frames, StackFrame{
			Id:   0,
			Name: "top",
			Line: c.pre.Logical[cur].PhysStart + 1,
		})
	}

	stack := c.ctx.CallStackSnapshot()
	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]
		phys := 0
		if f.ReturnPC < len(c.pre.Logical) {
			phys = c.pre.Logical[f.ReturnPC].PhysStart + 1
		}
		frames = append(frames, StackFrame{
			Id:   len(frames),
			Name: fmt.Sprintf("frame%d", len(frames)),
			Line: phys,
		})
	}

	c.sendResponse(msg, true, StackTraceResponseBody{
		StackFrames: frames,
		TotalFrames: len(frames),
	})
}

// handleScopes encodes the requested frame id into the Local scope's
// variablesReference (scopeRefLocalBase+frameId) so a later
// "variables" request on that reference can be routed to the right
// frame's locals; frame 0 (the innermost/current frame) instead
// reports the fully merged view via GetVisibleVariables.
func (c *Coordinator) handleScopes(msg *Message) {
	var args ScopesArguments
	if len(msg.Arguments) > 0 {
		json.Unmarshal(msg.Arguments, &args)
	}
	c.sendResponse(msg, true, ScopesResponseBody{
		Scopes: []Scope{
			{Name: "Local", VariablesReference: scopeRefLocalBase + args.FrameId},
			{Name: "Global", VariablesReference: scopeRefGlobal},
		},
	})
}

func (c *Coordinator) handleVariables(msg *Message) {
	var args struct {
		VariablesReference int `json:"variablesReference"`
	}
	if len(msg.Arguments) > 0 {
		json.Unmarshal(msg.Arguments, &args)
	}

	if c.ctx == nil {
		c.sendResponse(msg, true, VariablesResponseBody{})
		return
	}

	var vars map[string]string
	switch {
	case args.VariablesReference == scopeRefGlobal:
		vars = c.ctx.GetGlobals()
	case args.VariablesReference == scopeRefLocalBase:
		vars = c.ctx.GetVisibleVariables()
	case args.VariablesReference > scopeRefLocalBase:
		vars = c.ctx.GetFrameVariables(args.VariablesReference - scopeRefLocalBase)
	default:
		vars = c.ctx.GetVisibleVariables()
	}

	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]Variable, 0, len(names))
	for _, name := range names {
		out = append(out, Variable{Name: name, Value: vars[name]})
	}
	c.sendResponse(msg, true, VariablesResponseBody{Variables: out})
}

func (c *Coordinator) handleResume(msg *Message, mode dbgctx.RunMode) {
	if c.ctx != nil {
		c.ctx.SetMode(mode)
		c.ctx.SetContinueRequested(true)
	}
	c.sendResponse(msg, true, nil)
}

// handlePause transitions to step-into so the interpreter's next loop
// iteration will stop on its own, and additionally emits a synthetic
// stopped event right away so the editor doesn't wait for that to
// happen.
func (c *Coordinator) handlePause(msg *Message) {
	if c.ctx != nil {
		c.ctx.SetMode(dbgctx.ModeStepInto)
	}
	c.sendResponse(msg, true, nil)
	c.drainOutputNonBlocking()
	c.sendEvent("stopped", StoppedEventBody{Reason: "pause", ThreadId: mainThreadID})
}
