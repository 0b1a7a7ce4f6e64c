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
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchdbg/batchdbg/internal/dbgctx"
	"github.com/batchdbg/batchdbg/internal/labels"
	"github.com/batchdbg/batchdbg/internal/preprocess"
)

type stubSession struct{}

func (stubSession) Run(string) (string, int, error)      { return "", 0, nil }
func (stubSession) RunBlock([]string) (string, int, error) { return "", 0, nil }
func (stubSession) Close() error                          { return nil }

func newTestReadline(t *testing.T, input string) (*readline.Instance, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 "(batchdbg) ",
		Stdin:                  io.NopCloser(strings.NewReader(input)),
		Stdout:                 &out,
		DisableAutoSaveHistory: true,
	})
	require.NoError(t, err)
	return rl, &out
}

func TestPromptForCommandNextSetsStepOverAndResumes(t *testing.T) {
	rl, _ := newTestReadline(t, "n\n")
	defer rl.Close()

	ctx := dbgctx.New(stubSession{})
	promptForCommand(rl, ctx, preprocess.Result{})

	assert.Equal(t, dbgctx.ModeStepOver, ctx.Mode())
	assert.True(t, ctx.ContinueRequested())
}

func TestPromptForCommandBreakThenContinue(t *testing.T) {
	physical := []string{"echo one", "echo two", "echo three"}
	pre := preprocess.Preprocess(physical)
	labelsPhys := labels.Build(physical)
	_ = labelsPhys

	rl, _ := newTestReadline(t, "b 2\nc\n")
	defer rl.Close()

	ctx := dbgctx.New(stubSession{})
	promptForCommand(rl, ctx, pre)

	assert.Equal(t, dbgctx.ModeContinue, ctx.Mode())
	assert.True(t, ctx.ContinueRequested())
	assert.True(t, ctx.ShouldStopAt(pre.PhysToLogical[1], nil))
}

func TestPromptForCommandUnknownThenStep(t *testing.T) {
	rl, out := newTestReadline(t, "bogus\ns\n")
	defer rl.Close()

	ctx := dbgctx.New(stubSession{})
	promptForCommand(rl, ctx, preprocess.Result{})

	assert.Equal(t, dbgctx.ModeStepInto, ctx.Mode())
	assert.True(t, ctx.ContinueRequested())
	assert.Contains(t, out.String(), "unknown command")
}
