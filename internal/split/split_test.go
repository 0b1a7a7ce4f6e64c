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

package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitUnconditional(t *testing.T) {
	parts := Split("echo A & echo B")
	require.Len(t, parts, 2)
	assert.Equal(t, "echo A", parts[0].Text)
	assert.Equal(t, OpUnconditional, parts[0].Op)
	assert.Equal(t, "echo B", parts[1].Text)
	assert.Equal(t, OpNone, parts[1].Op)
}

func TestSplitAndOr(t *testing.T) {
	parts := Split("echo A & echo B && echo C")
	require.Len(t, parts, 3)
	assert.Equal(t, OpUnconditional, parts[0].Op)
	assert.Equal(t, OpAnd, parts[1].Op)
	assert.Equal(t, OpNone, parts[2].Op)
	assert.Equal(t, "echo C", parts[2].Text)
}

func TestSplitOr(t *testing.T) {
	parts := Split("mkdir foo || echo failed")
	require.Len(t, parts, 2)
	assert.Equal(t, OpOr, parts[0].Op)
}

func TestSplitBarePipeUntouched(t *testing.T) {
	parts := Split("dir | findstr foo")
	require.Len(t, parts, 1)
	assert.Equal(t, "dir | findstr foo", parts[0].Text)
}

func TestSplitQuotedAmpersandIgnored(t *testing.T) {
	parts := Split(`echo "a & b"`)
	require.Len(t, parts, 1)
	assert.Equal(t, `echo "a & b"`, parts[0].Text)
}

func TestSplitCaretEscapedAmpersandIgnored(t *testing.T) {
	parts := Split("echo a ^& b")
	require.Len(t, parts, 1)
	assert.Equal(t, "echo a ^& b", parts[0].Text)
}

func TestSplitDiscardsEmptyParts(t *testing.T) {
	parts := Split("echo A &&   ")
	require.Len(t, parts, 1)
	assert.Equal(t, OpAnd, parts[0].Op)
}

func TestSplitSinglePart(t *testing.T) {
	parts := Split("echo hello")
	require.Len(t, parts, 1)
	assert.Equal(t, OpNone, parts[0].Op)
}
