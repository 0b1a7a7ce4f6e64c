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

package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinContinuedLinesSingleCaret(t *testing.T) {
	r := Preprocess([]string{
		`echo hello ^`,
		`world`,
	})
	require.Len(t, r.Logical, 1)
	assert.Equal(t, "echo hello world", r.Logical[0].Text)
	assert.Equal(t, 0, r.Logical[0].PhysStart)
	assert.Equal(t, 1, r.Logical[0].PhysEnd)
	assert.Equal(t, []int{0, 0}, r.PhysToLogical)
}

func TestJoinContinuedLinesTransitive(t *testing.T) {
	r := Preprocess([]string{
		`echo a ^`,
		`b ^`,
		`c`,
	})
	require.Len(t, r.Logical, 1)
	assert.Equal(t, "echo a b c", r.Logical[0].Text)
}

func TestEvenTrailingCaretsDoesNotContinue(t *testing.T) {
	r := Preprocess([]string{
		`echo a^^`,
		`echo b`,
	})
	require.Len(t, r.Logical, 2)
	assert.Equal(t, `echo a^^`, r.Logical[0].Text)
	assert.Equal(t, `echo b`, r.Logical[1].Text)
}

func TestNoTrailingCaretDoesNotContinue(t *testing.T) {
	r := Preprocess([]string{"echo a", "echo b"})
	require.Len(t, r.Logical, 2)
	assert.Equal(t, []int{0, 1}, r.PhysToLogical)
}

func TestAnnotateBlocksDepthAndGroup(t *testing.T) {
	r := Preprocess([]string{
		`if "%x%"=="1" (`,
		`  echo inside`,
		`)`,
		`echo after`,
	})
	require.Len(t, r.Logical, 4)
	assert.Equal(t, 0, r.Logical[0].GroupDepth)
	require.NotNil(t, r.Logical[1].GroupID)
	assert.Equal(t, 1, r.Logical[1].GroupDepth)
	assert.Equal(t, 1, r.Logical[2].GroupDepth)
	assert.Equal(t, 0, r.Logical[3].GroupDepth)
	assert.Nil(t, r.Logical[3].GroupID)
}

func TestParensInsideQuotesAreLiteral(t *testing.T) {
	delta := ParenDelta(`echo "literal ( paren"`)
	assert.Equal(t, 0, delta)
}

func TestCaretEscapesOneParen(t *testing.T) {
	delta := ParenDelta(`echo ^( not a block`)
	assert.Equal(t, 0, delta)
}

func TestParenDeltaBalanced(t *testing.T) {
	assert.Equal(t, 0, ParenDelta(`if (1==1) (echo x)`))
	assert.Equal(t, 1, ParenDelta(`if (1==1) (`))
}

func TestNestedGroupIDsDiffer(t *testing.T) {
	r := Preprocess([]string{
		`if 1==1 (`,
		`  if 2==2 (`,
		`    echo nested`,
		`  )`,
		`)`,
	})
	require.Len(t, r.Logical, 5)
	require.NotNil(t, r.Logical[1].GroupID)
	require.NotNil(t, r.Logical[2].GroupID)
	assert.NotEqual(t, *r.Logical[1].GroupID, *r.Logical[2].GroupID)
}

func TestSplitPhysicalLinesHandlesCRLF(t *testing.T) {
	lines := SplitPhysicalLines("echo a\r\necho b\r\n")
	assert.Equal(t, []string{"echo a", "echo b"}, lines)
}

func TestSplitPhysicalLinesHandlesLF(t *testing.T) {
	lines := SplitPhysicalLines("echo a\necho b")
	assert.Equal(t, []string{"echo a", "echo b"}, lines)
}
