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

package dbgctx

// Frame is one CALL activation on the call stack.
type Frame struct {
	// ReturnPC is the logical line index execution resumes at when
	// this frame is left (EXIT /B, GOTO :EOF, or falling off the end
	// of the script).
	ReturnPC int
	// Args holds %1..%9 for this call, positionally; a missing
	// trailing argument expands to the empty string.
	Args []string
	// Locals holds SET values scoped to this frame. Only populated
	// while HasSetlocal is true.
	Locals map[string]string
	// HasSetlocal is true between this frame's SETLOCAL and its
	// matching ENDLOCAL (or until the frame is left, whichever comes
	// first).
	HasSetlocal bool
}

// NewFrame builds a frame returning to returnPC with the given
// positional arguments.
func NewFrame(returnPC int, args []string) *Frame {
	return &Frame{
		ReturnPC: returnPC,
		Args:     args,
		Locals:   make(map[string]string),
	}
}

// Arg returns the 1-based positional argument n, or "" if there are
// fewer than n arguments.
func (f *Frame) Arg(n int) string {
	if n < 1 || n > len(f.Args) {
		return ""
	}
	return f.Args[n-1]
}
