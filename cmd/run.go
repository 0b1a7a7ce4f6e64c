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

package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/batchdbg/batchdbg/internal/dap"
	"github.com/batchdbg/batchdbg/internal/dbgctx"
	"github.com/batchdbg/batchdbg/internal/interp"
	"github.com/batchdbg/batchdbg/internal/labels"
	"github.com/batchdbg/batchdbg/internal/preprocess"
	"github.com/batchdbg/batchdbg/internal/session"
)

// runDAP serves the Debug Adapter Protocol over stdin/stdout until the
// client disconnects or the pipe closes.
func runDAP() error {
	return dap.NewCoordinator(os.Stdin, os.Stdout).Run()
}

// runInteractive drives a script through a readline REPL, printing a
// colored trace at every stop and accepting single-letter stepping
// commands.
func runInteractive(scriptPath string) error {
	if scriptPath == "" {
		return fmt.Errorf("batchdbg: --script is required in interactive mode")
	}

	raw, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("batchdbg: reading %s: %w", scriptPath, err)
	}

	physical := preprocess.SplitPhysicalLines(string(raw))
	pre := preprocess.Preprocess(physical)
	labelsPhys := labels.Build(physical)

	sess, err := session.Start(session.ModeInteractive)
	if err != nil {
		return fmt.Errorf("batchdbg: starting session: %w", err)
	}
	defer sess.Close()

	ctx := dbgctx.New(sess)
	ctx.SetMode(dbgctx.ModeStepInto)

	rl, err := readline.New("(batchdbg) ")
	if err != nil {
		return fmt.Errorf("batchdbg: starting readline: %w", err)
	}
	defer rl.Close()

	hooks := interp.Hooks{
		StopOnEntry: true,
		Interactive: true,
		OnStop: func(ev interp.StopEvent) {
			interp.TraceStop(ev)
			promptForCommand(rl, ctx, pre)
		},
		OnOutput: func(out string) {
			fmt.Print(out)
		},
		OnTerminated: func() {
			color.Green("script terminated, exit code %d", ctx.LastExitCode())
		},
		AwaitKeypress: func() {
			color.Yellow("paused, press enter to continue")
			rl.Readline()
		},
	}

	return interp.New(pre, labelsPhys, ctx, hooks).Run()
}

// promptForCommand reads one command from the REPL and applies it to
// ctx, resuming execution once a stepping command is recognized.
// Breakpoint line numbers are taken as 1-based physical script lines
// and mapped to logical lines via pre.
func promptForCommand(rl *readline.Instance, ctx *dbgctx.Context, pre preprocess.Result) {
	for {
		line, err := rl.Readline()
		if err != nil {
			os.Exit(0)
		}
		line = strings.TrimSpace(line)
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "c", "continue":
			ctx.SetMode(dbgctx.ModeContinue)
		case "n", "next":
			ctx.SetMode(dbgctx.ModeStepOver)
		case "s", "step":
			ctx.SetMode(dbgctx.ModeStepInto)
		case "o", "out":
			ctx.SetMode(dbgctx.ModeStepOut)
		case "b", "break":
			if len(fields) < 2 {
				color.Red("usage: b <line>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 || n > len(pre.PhysToLogical) {
				color.Red("usage: b <line>")
				continue
			}
			ctx.AddBreakpoint(pre.PhysToLogical[n-1])
			color.Yellow("breakpoint set at line %d", n)
			continue
		case "p", "print":
			for k, v := range ctx.GetVisibleVariables() {
				fmt.Printf("%s=%s\n", k, v)
			}
			continue
		case "q", "quit":
			ctx.CloseSession()
			os.Exit(0)
		default:
			fmt.Fprintln(rl.Stdout(), color.RedString("unknown command: %s", fields[0]))
			continue
		}

		ctx.SetContinueRequested(true)
		return
	}
}
