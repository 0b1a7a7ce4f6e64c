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

// Package labels builds the case-insensitive label index CALL and GOTO
// resolve against.
package labels

import "strings"

// Map is a case-insensitive label name to physical line index index.
// The reserved pseudo-label "eof" is never present; it is handled
// specially by the interpreter.
type Map map[string]int

// Build scans physical lines for ":label" definitions. A line defines
// a label when, once trimmed, it starts with ":" and is not the
// ":: comment" form. Matching is case-insensitive; a later definition
// of the same name overrides an earlier one.
func Build(physical []string) Map {
	m := make(Map)
	for i, line := range physical {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, ":") || strings.HasPrefix(trimmed, "::") {
			continue
		}
		rest := trimmed[1:]
		if rest == "" {
			continue
		}
		name := rest
		if fields := strings.Fields(rest); len(fields) > 0 {
			name = fields[0]
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || name == "eof" {
			continue
		}
		m[name] = i
	}
	return m
}
