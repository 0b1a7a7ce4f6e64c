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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchdbg/batchdbg/internal/dbgctx"
)

type fakeSession struct {
	calls []string
}

func (f *fakeSession) Run(cmd string) (string, int, error) {
	f.calls = append(f.calls, cmd)
	return "", 0, nil
}

func (f *fakeSession) RunBlock(lines []string) (string, int, error) {
	f.calls = append(f.calls, strings.Join(lines, "\n"))
	return "", 0, nil
}

func (f *fakeSession) Close() error { return nil }

func encodeFrame(seq int, msgType, command string, args interface{}) []byte {
	var raw json.RawMessage
	if args != nil {
		raw, _ = json.Marshal(args)
	}
	m := Message{Seq: seq, Type: msgType, Command: command, Arguments: raw}
	data, _ := json.Marshal(m)
	return data
}

func writeFrame(buf *bytes.Buffer, payload []byte) {
	fmt.Fprintf(buf, "Content-Length: %d\r\n\r\n", len(payload))
	buf.Write(payload)
}

func readMessages(t *testing.T, r *bufio.Reader, n int) []Message {
	t.Helper()
	out := make([]Message, 0, n)
	for i := 0; i < n; i++ {
		length, err := readContentLength(r)
		require.NoError(t, err)
		buf := make([]byte, length)
		_, err = r.Read(buf)
		require.NoError(t, err)
		var m Message
		require.NoError(t, json.Unmarshal(buf, &m))
		out = append(out, m)
	}
	return out
}

func TestInitializeRespondsWithCapabilitiesAndEvent(t *testing.T) {
	var in bytes.Buffer
	writeFrame(&in, encodeFrame(1, "request", "initialize", nil))
	writeFrame(&in, encodeFrame(2, "request", "disconnect", nil))

	var out bytes.Buffer
	c := NewCoordinator(&in, &out)
	require.NoError(t, c.Run())

	r := bufio.NewReader(&out)
	msgs := readMessages(t, r, 3)
	assert.Equal(t, "response", msgs[0].Type)
	assert.Equal(t, "initialize", msgs[0].Command)
	assert.True(t, msgs[0].Success)
	assert.Equal(t, "event", msgs[1].Type)
	assert.Equal(t, "initialized", msgs[1].Event)
	assert.Equal(t, "disconnect", msgs[2].Command)
}

func TestLaunchStopsOnEntryThenSetBreakpointsAndContinue(t *testing.T) {
	script := "echo one\necho two\necho three\n"

	var in bytes.Buffer
	writeFrame(&in, encodeFrame(1, "request", "launch", LaunchArguments{Program: "script.bat", StopOnEntry: true}))
	writeFrame(&in, encodeFrame(2, "request", "setBreakpoints", SetBreakpointsArguments{
		Source:      Source{Path: "script.bat"},
		Breakpoints: []SourceBreakpoint{{Line: 2}},
	}))
	writeFrame(&in, encodeFrame(3, "request", "continue", nil))
	writeFrame(&in, encodeFrame(4, "request", "continue", nil))
	writeFrame(&in, encodeFrame(5, "request", "disconnect", nil))

	var out bytes.Buffer
	c := NewCoordinator(&in, &out)
	c.readFile = func(path string) ([]byte, error) { return []byte(script), nil }
	fake := &fakeSession{}
	c.newSession = func() (dbgctx.Session, error) { return fake, nil }

	done := make(chan error, 1)
	go func() { done <- c.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not terminate")
	}

	r := bufio.NewReader(&out)
	var msgs []Message
	for {
		length, err := readContentLength(r)
		if err != nil {
			break
		}
		buf := make([]byte, length)
		if _, err := r.Read(buf); err != nil {
			break
		}
		var m Message
		json.Unmarshal(buf, &m)
		msgs = append(msgs, m)
	}

	require.NotEmpty(t, msgs)
	assert.Equal(t, "launch", msgs[0].Command)
	assert.True(t, msgs[0].Success)

	var sawEntryStop, sawBreakpointResponse bool
	for _, m := range msgs {
		if m.Type == "event" && m.Event == "stopped" {
			var body StoppedEventBody
			json.Unmarshal(m.Body, &body)
			if body.Reason == "entry" {
				sawEntryStop = true
			}
		}
		if m.Command == "setBreakpoints" && m.Success {
			sawBreakpointResponse = true
		}
	}
	assert.True(t, sawEntryStop)
	assert.True(t, sawBreakpointResponse)
	assert.Contains(t, fake.calls, "echo one")
}

func TestHandleSetBreakpointsWithNoLaunchedScriptRespondsEmpty(t *testing.T) {
	var out bytes.Buffer
	c := &Coordinator{w: &out}
	msg := &Message{Seq: 1, Command: "setBreakpoints"}
	c.handleSetBreakpoints(msg)

	r := bufio.NewReader(&out)
	msgs := readMessages(t, r, 1)
	assert.True(t, msgs[0].Success)
}
