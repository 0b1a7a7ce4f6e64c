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

// Package session drives a single, persistent cmd.exe child process
// through a sentinel-based request/response protocol: each command is
// appended with a marker that echoes the command's exit code, so the
// session can tell where one command's output ends and its exit
// status is without needing a full shell-protocol implementation.
package session

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/batchdbg/batchdbg/internal/dbgerr"
)

// VerboseFlag, when set, makes Session print every command sent to and
// every line read back from the child, mirroring the teacher's own
// request/response tracing.
var VerboseFlag bool

// Mode selects the child's launch flags.
type Mode int

const (
	// ModeDAP starts cmd.exe with no initial foreground command: the
	// DAP coordinator drives it purely through the sentinel protocol.
	ModeDAP Mode = iota
	// ModeInteractive keeps the child alive under a human-attended
	// session (adds /K).
	ModeInteractive
)

const sentinel = "__BATCHDBG_DONE__"

// Session owns one persistent cmd.exe child process.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	mu            sync.Mutex
	blockFilePath string
}

// Start spawns the child with delayed variable expansion always on
// (required so !ERRORLEVEL! resolves inside the same command batch the
// sentinel line is appended to) and, in interactive mode, keeps the
// window attached to the human's terminal via /K.
func Start(mode Mode) (*Session, error) {
	var args []string
	switch mode {
	case ModeInteractive:
		args = []string{"/Q", "/K", "/V:ON"}
	default:
		args = []string{"/Q", "/V:ON"}
	}

	cmd := exec.Command("cmd.exe", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, dbgerr.Wrap(dbgerr.IoError, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, dbgerr.Wrap(dbgerr.IoError, err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, dbgerr.Wrap(dbgerr.IoError, err)
	}

	return &Session{
		cmd:           cmd,
		stdin:         stdin,
		stdout:        bufio.NewReaderSize(stdout, 64*1024),
		blockFilePath: filepath.Join(os.TempDir(), fmt.Sprintf("batchdbg-block-%d.bat", os.Getpid())),
	}, nil
}

// Run sends a single command line to the child, merging its stderr
// into the same stream (2>&1), and blocks until the sentinel line
// comes back with the command's exit code.
func (s *Session) Run(cmdLine string) (output string, exitCode int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wrapped := fmt.Sprintf("%s 2>&1 & echo %s !errorlevel!\r\n", cmdLine, sentinel)
	if VerboseFlag {
		color.Green("batchdbg -> cmd: %s", cmdLine)
	}
	if _, err := io.WriteString(s.stdin, wrapped); err != nil {
		return "", 0, dbgerr.Wrap(dbgerr.IoError, err)
	}

	output, exitCode, err = parseSentinelStream(s.stdout, sentinel)
	if VerboseFlag && err == nil {
		color.Cyan("cmd -> batchdbg: %q (exit %d)", output, exitCode)
	}
	return output, exitCode, err
}

// RunBlock executes a multi-line IF/FOR construct by writing it to a
// fixed per-process temp .bat file and CALLing that file, since such
// constructs cannot be fed to cmd.exe one line at a time without
// breaking their parsing.
func (s *Session) RunBlock(lines []string) (output string, exitCode int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content := "@echo off\r\n" + strings.Join(lines, "\r\n") + "\r\n"
	if err := os.WriteFile(s.blockFilePath, []byte(content), 0o644); err != nil {
		return "", 0, dbgerr.Wrap(dbgerr.IoError, err)
	}
	defer os.Remove(s.blockFilePath)

	wrapped := fmt.Sprintf("call %q 2>&1 & echo %s !errorlevel!\r\n", s.blockFilePath, sentinel)
	if VerboseFlag {
		color.Green("batchdbg -> cmd (block): %s", strings.Join(lines, " "))
	}
	if _, err := io.WriteString(s.stdin, wrapped); err != nil {
		return "", 0, dbgerr.Wrap(dbgerr.IoError, err)
	}

	return parseSentinelStream(s.stdout, sentinel)
}

// Close asks the child to exit cleanly before tearing down its pipes,
// so it is never killed out from under a write.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	io.WriteString(s.stdin, "exit\r\n")
	s.stdin.Close()
	return s.cmd.Wait()
}

// parseSentinelStream reads lines from r until one starts with
// sentinel, splitting off the trailing exit code. Output lines seen
// before the sentinel are accumulated and returned verbatim. Reaching
// EOF before the sentinel is an IoError: the child pipe closed out
// from under the protocol.
func parseSentinelStream(r *bufio.Reader, sentinel string) (string, int, error) {
	var out strings.Builder
	for {
		line, readErr := r.ReadString('\n')
		if line != "" {
			trimmed := strings.TrimRight(line, "\r\n")
			if strings.HasPrefix(trimmed, sentinel) {
				rest := strings.TrimSpace(strings.TrimPrefix(trimmed, sentinel))
				code, convErr := strconv.Atoi(rest)
				if convErr != nil {
					code = 0
				}
				return out.String(), code, nil
			}
			out.WriteString(line)
		}
		if readErr != nil {
			if readErr == io.EOF {
				return out.String(), 0, dbgerr.New(dbgerr.IoError, "child stream closed before sentinel")
			}
			return out.String(), 0, dbgerr.Wrap(dbgerr.IoError, readErr)
		}
	}
}
