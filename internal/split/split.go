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

// Package split breaks one logical command line into its composite
// parts across the unconditional (&), and (&&), and or (||)
// operators. A bare pipe (|) is left untouched — it is a shell pipe,
// not a composite operator this engine short-circuits on.
package split

import "strings"

// Op identifies the operator joining a Part to the one after it.
type Op int

const (
	// OpNone marks the final part; there is nothing after it.
	OpNone Op = iota
	// OpUnconditional is "&": always run the next part.
	OpUnconditional
	// OpAnd is "&&": run the next part only if this one succeeded.
	OpAnd
	// OpOr is "||": run the next part only if this one failed.
	OpOr
)

// Part is one command segment plus the operator that connects it to
// the next segment (OpNone on the last part).
type Part struct {
	Text string
	Op   Op
}

// Split scans line left to right, toggling quote state on unescaped
// '"' and treating '^' as a one-character escape, splitting on
// "&&", "||" and bare "&". Each part is trimmed; empty trimmed parts
// are discarded, including a trailing one.
func Split(line string) []Part {
	var parts []Part
	var cur strings.Builder
	inQuotes := false
	escaped := false

	runes := []rune(line)
	n := len(runes)
	i := 0

	flush := func(op Op) {
		text := strings.TrimSpace(cur.String())
		if text != "" {
			parts = append(parts, Part{Text: text, Op: op})
		}
		cur.Reset()
	}

	for i < n {
		ch := runes[i]

		if escaped {
			cur.WriteRune(ch)
			escaped = false
			i++
			continue
		}
		if ch == '^' {
			cur.WriteRune(ch)
			escaped = true
			i++
			continue
		}
		if ch == '"' {
			inQuotes = !inQuotes
			cur.WriteRune(ch)
			i++
			continue
		}
		if !inQuotes && ch == '&' {
			if i+1 < n && runes[i+1] == '&' {
				flush(OpAnd)
				i += 2
				continue
			}
			flush(OpUnconditional)
			i++
			continue
		}
		if !inQuotes && ch == '|' && i+1 < n && runes[i+1] == '|' {
			flush(OpOr)
			i += 2
			continue
		}

		cur.WriteRune(ch)
		i++
	}

	flush(OpNone)
	return parts
}
