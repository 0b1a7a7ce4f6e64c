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

// Package interp runs the main debugging loop over a preprocessed
// script: unwinding at end of file, skipping trivial lines, deciding
// whether to stop, and dispatching control flow (SETLOCAL/ENDLOCAL,
// CALL, EXIT /B, GOTO, PAUSE, IF/FOR block execution, and leaf command
// execution with argument expansion and composite short-circuiting).
package interp

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/fatih/color"

	"github.com/batchdbg/batchdbg/internal/dbgctx"
	"github.com/batchdbg/batchdbg/internal/dbgerr"
	"github.com/batchdbg/batchdbg/internal/preprocess"
	"github.com/batchdbg/batchdbg/internal/labels"
	"github.com/batchdbg/batchdbg/internal/split"
)

// StopReason names why the interpreter stopped at a line.
type StopReason string

const (
	ReasonEntry       StopReason = "entry"
	ReasonStep        StopReason = "step"
	ReasonBreakpoint  StopReason = "breakpoint"
	ReasonTerminated  StopReason = "terminated"
)

// StopEvent describes one stop or termination.
type StopEvent struct {
	Reason StopReason
	Line   int // logical line index; meaningless when Reason is ReasonTerminated
}

// Hooks lets the caller (the DAP coordinator, or the interactive REPL)
// observe stops and output without the interpreter knowing which one
// it's driving.
type Hooks struct {
	// StopOnEntry asks the very first stop to be reported with
	// ReasonEntry instead of ReasonStep/ReasonBreakpoint.
	StopOnEntry bool
	// Interactive selects PAUSE's behavior: true blocks on a keypress
	// via AwaitKeypress; false passes PAUSE through to the child like
	// any other command.
	Interactive bool

	OnStop       func(StopEvent)
	OnOutput     func(string)
	OnTerminated func()
	// AwaitKeypress blocks until the user acknowledges a PAUSE.
	// Required when Interactive is true.
	AwaitKeypress func()
}

const stepPollInterval = 20 * time.Millisecond

// Interpreter runs one script to completion.
type Interpreter struct {
	pre        preprocess.Result
	labelsPhys labels.Map
	ctx        *dbgctx.Context
	hooks      Hooks

	pc        int
	stepDepth *int
}

// New builds an Interpreter starting at logical line 0.
func New(pre preprocess.Result, labelsPhys labels.Map, ctx *dbgctx.Context, hooks Hooks) *Interpreter {
	return &Interpreter{pre: pre, labelsPhys: labelsPhys, ctx: ctx, hooks: hooks}
}

// Run executes the script until it terminates or a fatal error (an
// unknown CALL/GOTO label, or a session I/O failure) occurs.
func (in *Interpreter) Run() error {
	firstStop := true

	for {
		for in.pc >= len(in.pre.Logical) {
			f, ok := in.ctx.PopFrame()
			if !ok {
				in.terminate()
				return nil
			}
			in.pc = f.ReturnPC
		}

		ll := in.pre.Logical[in.pc]
		trimmed := strings.TrimSpace(ll.Text)
		upper := strings.ToUpper(trimmed)

		if isTrivial(trimmed, upper) {
			in.pc++
			continue
		}

		if in.ctx.ShouldStopAt(in.pc, in.stepDepth) {
			in.stopAndWait(firstStop)
		}
		firstStop = false

		switch {
		case strings.HasPrefix(upper, "SETLOCAL"):
			in.ctx.HandleSetlocal()
			if err := in.passthrough(trimmed); err != nil {
				in.terminate()
				return err
			}
			in.pc++

		case strings.HasPrefix(upper, "ENDLOCAL"):
			in.ctx.HandleEndlocal()
			if err := in.passthrough(trimmed); err != nil {
				in.terminate()
				return err
			}
			in.pc++

		case strings.HasPrefix(upper, "CALL "):
			target, args, ok := in.resolveCall(trimmed)
			if !ok {
				in.terminate()
				return dbgerr.New(dbgerr.UnknownLabel, "CALL to unknown label: "+trimmed)
			}
			in.ctx.PushFrame(dbgctx.NewFrame(in.pc+1, args))
			in.pc = target

		case isExitB(upper):
			in.ctx.SetLastExitCode(parseExitCode(trimmed))
			f, ok := in.ctx.PopFrame()
			if !ok {
				in.terminate()
				return nil
			}
			in.pc = f.ReturnPC

		case upper == "GOTO :EOF":
			f, ok := in.ctx.PopFrame()
			if !ok {
				in.terminate()
				return nil
			}
			in.pc = f.ReturnPC

		case strings.HasPrefix(upper, "GOTO "):
			target, ok := in.resolveGoto(trimmed)
			if !ok {
				in.terminate()
				return dbgerr.New(dbgerr.UnknownLabel, "GOTO to unknown label: "+trimmed)
			}
			in.pc = target

		case upper == "PAUSE":
			if err := in.handlePause(); err != nil {
				in.terminate()
				return err
			}
			in.pc++

		case isBlockStart(upper) && preprocess.ParenDelta(trimmed) > 0:
			if err := in.runBlock(); err != nil {
				in.terminate()
				return err
			}

		default:
			if err := in.runLeaf(trimmed); err != nil {
				in.terminate()
				return err
			}
			in.pc++
		}
	}
}

func (in *Interpreter) terminate() {
	if in.hooks.OnTerminated != nil {
		in.hooks.OnTerminated()
	}
}

func isTrivial(trimmed, upper string) bool {
	if trimmed == "" {
		return true
	}
	if strings.HasPrefix(trimmed, "::") {
		return true
	}
	if strings.HasPrefix(trimmed, ":") {
		return true
	}
	if upper == "REM" || strings.HasPrefix(upper, "REM ") || strings.HasPrefix(upper, "REM\t") {
		return true
	}
	return false
}

func isBlockStart(upper string) bool {
	return strings.HasPrefix(upper, "IF ") || strings.HasPrefix(upper, "IF(") ||
		strings.HasPrefix(upper, "FOR ")
}

func isExitB(upper string) bool {
	return strings.HasPrefix(upper, "EXIT /B") || strings.HasPrefix(upper, "EXIT/B")
}

func parseExitCode(trimmed string) int {
	upper := strings.ToUpper(trimmed)
	rest := ""
	switch {
	case strings.HasPrefix(upper, "EXIT /B"):
		rest = trimmed[len("EXIT /B"):]
	case strings.HasPrefix(upper, "EXIT/B"):
		rest = trimmed[len("EXIT/B"):]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0
	}
	return n
}

func (in *Interpreter) stopAndWait(firstStop bool) {
	in.ctx.SetCurrentLine(in.pc)
	in.ctx.ClearContinueRequested()

	reason := ReasonStep
	if in.ctx.Mode() == dbgctx.ModeContinue {
		reason = ReasonBreakpoint
	}
	if firstStop && in.hooks.StopOnEntry {
		reason = ReasonEntry
	}
	if in.hooks.OnStop != nil {
		in.hooks.OnStop(StopEvent{Reason: reason, Line: in.pc})
	}

	for !in.ctx.ContinueRequested() {
		time.Sleep(stepPollInterval)
	}

	switch in.ctx.Mode() {
	case dbgctx.ModeStepOver:
		d := in.ctx.CallDepth()
		in.stepDepth = &d
	default:
		in.stepDepth = nil
	}
}

func (in *Interpreter) passthrough(line string) error {
	out, _, err := in.ctx.RunCommand(line)
	if err != nil {
		return dbgerr.Wrap(dbgerr.IoError, err)
	}
	if out != "" && in.hooks.OnOutput != nil {
		in.hooks.OnOutput(out)
	}
	return nil
}

func (in *Interpreter) handlePause() error {
	if in.hooks.Interactive {
		if in.hooks.AwaitKeypress != nil {
			in.hooks.AwaitKeypress()
		}
		return nil
	}
	return in.runLeaf("PAUSE")
}

// resolveCall tokenizes the text after "CALL " as shell-like
// whitespace-separated, quote-respecting words; the first word (with
// an optional leading ":") is the label, the rest become %1..%9.
func (in *Interpreter) resolveCall(line string) (target int, args []string, ok bool) {
	rest := strings.TrimSpace(line[len("CALL "):])
	tokens := tokenizeArgs(rest)
	if len(tokens) == 0 {
		return 0, nil, false
	}
	name := strings.ToLower(strings.TrimPrefix(tokens[0], ":"))
	target, ok = in.resolveLabel(name)
	return target, tokens[1:], ok
}

func (in *Interpreter) resolveGoto(line string) (int, bool) {
	rest := strings.TrimSpace(line[len("GOTO "):])
	fields := tokenizeArgs(rest)
	if len(fields) == 0 {
		return 0, false
	}
	name := strings.ToLower(strings.TrimPrefix(fields[0], ":"))
	return in.resolveLabel(name)
}

func (in *Interpreter) resolveLabel(name string) (int, bool) {
	phys, ok := in.labelsPhys[name]
	if !ok {
		return 0, false
	}
	return in.pre.PhysToLogical[phys], true
}

func tokenizeArgs(s string) []string {
	var tokens []string
	var cur strings.Builder
	inQuotes := false
	has := false
	for _, ch := range s {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
			has = true
		case !inQuotes && unicode.IsSpace(ch):
			if has {
				tokens = append(tokens, cur.String())
				cur.Reset()
				has = false
			}
		default:
			cur.WriteRune(ch)
			has = true
		}
	}
	if has {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// runBlock collects consecutive logical lines starting at pc, summing
// their paren deltas until the running total returns to zero, and
// executes the whole group as one unit via the session's temp-file
// path (cmd.exe's IF/FOR parsing cannot be split across sentinel
// round-trips without breaking it).
func (in *Interpreter) runBlock() error {
	start := in.pc
	lines := []string{in.pre.Logical[start].Text}
	sum := preprocess.ParenDelta(in.pre.Logical[start].Text)
	end := start
	for sum != 0 && end+1 < len(in.pre.Logical) {
		end++
		text := in.pre.Logical[end].Text
		lines = append(lines, text)
		sum += preprocess.ParenDelta(text)
	}

	expanded := make([]string, len(lines))
	for i, l := range lines {
		expanded[i] = in.expandArgs(l)
	}
	in.ctx.TrackSetCommand(strings.Join(expanded, " "))

	out, _, err := in.ctx.RunBlock(expanded)
	if err != nil {
		return dbgerr.Wrap(dbgerr.IoError, err)
	}
	if out != "" && in.hooks.OnOutput != nil {
		in.hooks.OnOutput(out)
	}

	in.pc = end + 1
	return nil
}

// runLeaf expands %1..%9/%~N, tracks a SET assignment if present,
// splits on composite operators, and executes each part in turn,
// short-circuiting on && and || per the preceding part's exit code.
func (in *Interpreter) runLeaf(line string) error {
	expanded := in.expandArgs(line)
	in.ctx.TrackSetCommand(expanded)

	parts := split.Split(expanded)
	for i, part := range parts {
		if i > 0 && !shouldRun(parts[i-1].Op, in.ctx.LastExitCode()) {
			continue
		}
		out, _, err := in.ctx.RunCommand(part.Text)
		if err != nil {
			return dbgerr.Wrap(dbgerr.IoError, err)
		}
		if out != "" && in.hooks.OnOutput != nil {
			in.hooks.OnOutput(out)
		}
	}
	return nil
}

func shouldRun(prevOp split.Op, prevExitCode int) bool {
	switch prevOp {
	case split.OpAnd:
		return prevExitCode == 0
	case split.OpOr:
		return prevExitCode != 0
	default:
		return true
	}
}

// expandArgs substitutes %~1..%~9 (quote-stripped) and %1..%9 from the
// innermost frame's positional arguments, highest index first so %9
// never shadows a later substitution of %1 within the same pass.
func (in *Interpreter) expandArgs(line string) string {
	frame := in.ctx.TopFrame()
	var arg func(int) string
	if frame != nil {
		arg = frame.Arg
	} else {
		arg = func(int) string { return "" }
	}

	result := line
	for idx := 9; idx >= 1; idx-- {
		placeholder := fmt.Sprintf("%%~%d", idx)
		if strings.Contains(result, placeholder) {
			val := strings.Trim(arg(idx), `"`)
			result = strings.ReplaceAll(result, placeholder, val)
		}
	}
	for idx := 9; idx >= 1; idx-- {
		placeholder := fmt.Sprintf("%%%d", idx)
		if strings.Contains(result, placeholder) {
			result = strings.ReplaceAll(result, placeholder, arg(idx))
		}
	}
	return result
}

// TraceStop prints a colored step trace, used by the interactive REPL.
func TraceStop(ev StopEvent) {
	color.Yellow("stopped at logical line %d (%s)", ev.Line, ev.Reason)
}
