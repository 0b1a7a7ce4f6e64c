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
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/batchdbg/batchdbg/internal/session"
)

// sessionCmd spawns a bare cmd.exe session and runs one ad-hoc command
// line through the same sentinel protocol the debugger uses, printing
// its output and exit code. Useful for checking that the sentinel
// protocol round-trips correctly on a given machine without attaching
// a DAP client.
var sessionCmd = &cobra.Command{
	Use:   "session [command line]",
	Short: "Run one command through a scratch cmd.exe session and print its output/exit code",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 1 {
			log.Fatal("batchdbg: please provide a command line to run")
		}

		sess, err := session.Start(session.ModeDAP)
		if err != nil {
			log.Fatalf("batchdbg: starting session: %v", err)
		}
		defer sess.Close()

		out, code, err := sess.Run(strings.Join(args, " "))
		if err != nil {
			log.Fatalf("batchdbg: running command: %v", err)
		}
		fmt.Print(out)
		fmt.Printf("exit code: %d\n", code)
	},
}

func init() {
	RootCmd.AddCommand(sessionCmd)
}
