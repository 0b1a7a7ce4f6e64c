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

// Package preprocess turns a batch script's physical lines into logical
// lines: caret-continuations joined, parenthesis depth and group ids
// annotated, and a bidirectional physical<->logical index kept so the
// rest of the engine can report positions in terms the editor
// understands (physical line numbers) while executing in terms of
// logical lines.
package preprocess

import "strings"

// LogicalLine is one executable unit after continuation-joining.
type LogicalLine struct {
	Text string
	// PhysStart and PhysEnd are the inclusive range of physical line
	// indices (0-based) this logical line was joined from.
	PhysStart int
	PhysEnd   int
	// GroupID identifies the innermost parenthesized block this line's
	// start sits inside, or nil at top level.
	GroupID *int
	// GroupDepth is the parenthesis nesting depth at the start of the
	// line (before any of the line's own parens are counted).
	GroupDepth int
}

// Result is the full output of Preprocess.
type Result struct {
	Logical []LogicalLine
	// PhysToLogical maps each physical line index to the logical line
	// index it was folded into.
	PhysToLogical []int
}

// SplitPhysicalLines splits raw script text on CRLF/CR/LF line endings,
// dropping one trailing empty line produced by a final terminator.
func SplitPhysicalLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Preprocess joins caret-continued physical lines and annotates the
// resulting logical lines with parenthesis depth and group id.
func Preprocess(physical []string) Result {
	joined := joinContinuedLines(physical)
	logical := annotateBlocks(joined)

	physToLogical := make([]int, len(physical))
	for li, j := range joined {
		for p := j.physStart; p <= j.physEnd; p++ {
			physToLogical[p] = li
		}
	}

	return Result{Logical: logical, PhysToLogical: physToLogical}
}

type joinedLine struct {
	text      string
	physStart int
	physEnd   int
}

// trailingCarets trims trailing spaces/tabs and counts the run of
// carets immediately preceding what remains.
func trailingCarets(s string) (trimmed string, count int) {
	trimmed = strings.TrimRight(s, " \t")
	for i := len(trimmed) - 1; i >= 0; i-- {
		if trimmed[i] != '^' {
			break
		}
		count++
	}
	return trimmed, count
}

// joinContinuedLines implements the odd-trailing-caret-count join: a
// physical line continues into the next when its trailing (whitespace
// stripped) caret run has odd length. Exactly one trailing caret is cut,
// along with any whitespace before it, and a single space joins it to
// the next line's text, transitively.
func joinContinuedLines(physical []string) []joinedLine {
	var out []joinedLine
	i := 0
	for i < len(physical) {
		start := i
		var buf strings.Builder
		for {
			line := physical[i]
			trimmed, carets := trailingCarets(line)
			continues := len(trimmed) > 0 && carets%2 == 1

			var head string
			if continues {
				head = strings.TrimRight(trimmed[:len(trimmed)-1], " \t")
			} else {
				head = line
			}

			if buf.Len() == 0 {
				buf.WriteString(head)
			} else {
				buf.WriteByte(' ')
				buf.WriteString(head)
			}

			if continues && i+1 < len(physical) {
				i++
				continue
			}
			break
		}
		out = append(out, joinedLine{text: buf.String(), physStart: start, physEnd: i})
		i++
	}
	return out
}

// scanParens walks text calling onOpen/onClose for each unescaped,
// unquoted '(' and ')' in left-to-right order. A caret escapes exactly
// the one character that follows it; an unescaped '"' toggles quote
// state; parens inside quotes are literal text.
func scanParens(text string, onOpen, onClose func()) {
	inQuotes := false
	escaped := false
	for _, ch := range text {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '^':
			escaped = true
		case ch == '"':
			inQuotes = !inQuotes
		case inQuotes:
			// literal
		case ch == '(':
			onOpen()
		case ch == ')':
			onClose()
		}
	}
}

// ParenDelta is the net paren count (opens minus closes) a single
// line's text contributes, ignoring quoted and caret-escaped parens.
func ParenDelta(text string) int {
	delta := 0
	scanParens(text, func() { delta++ }, func() { delta-- })
	return delta
}

func annotateBlocks(joined []joinedLine) []LogicalLine {
	logical := make([]LogicalLine, 0, len(joined))
	depth := 0
	var groupStack []int
	nextGroupID := 1

	for _, j := range joined {
		lineDepth := depth
		var groupID *int
		if len(groupStack) > 0 {
			id := groupStack[len(groupStack)-1]
			groupID = &id
		}

		scanParens(j.text,
			func() {
				depth++
				groupStack = append(groupStack, nextGroupID)
				nextGroupID++
			},
			func() {
				if depth > 0 {
					depth--
				}
				if len(groupStack) > 0 {
					groupStack = groupStack[:len(groupStack)-1]
				}
			})

		logical = append(logical, LogicalLine{
			Text:       j.text,
			PhysStart:  j.physStart,
			PhysEnd:    j.physEnd,
			GroupID:    groupID,
			GroupDepth: lineDepth,
		})
	}
	return logical
}
