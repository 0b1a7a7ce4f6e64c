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
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/batchdbg/batchdbg/internal/session"
)

var (
	cfgFile    string
	dapFlag    bool
	adapterAlt bool
	scriptFlag string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "batchdbg",
	Short: "batchdbg is a source-level debugger for Windows batch scripts.\nCopyright (c) batchdbg Authors 2026",
	RunE: func(cmd *cobra.Command, args []string) error {
		session.VerboseFlag = viper.GetBool("verbose")
		if viper.GetBool("dap") || viper.GetBool("debug-adapter") {
			return runDAP()
		}
		return runInteractive(viper.GetString("script"))
	},
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "print request/response traffic between batchdbg and the child shell")
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.batchdbg.yaml)")
	RootCmd.Flags().BoolVar(&dapFlag, "dap", false, "run as a Debug Adapter Protocol server over stdio")
	RootCmd.Flags().BoolVar(&adapterAlt, "debug-adapter", false, "alias of --dap")
	RootCmd.Flags().StringVar(&scriptFlag, "script", "", "path to the batch script to debug (interactive mode)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// enable ability to specify config file via flag
		viper.SetConfigFile(cfgFile)
	}

	viper.SetConfigName(".batchdbg") // name of config file (without extension)
	viper.AddConfigPath("$HOME")     // adding home directory as first search path
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("BATCHDBG")
	viper.AutomaticEnv() // read in environment variables that match

	viper.BindPFlag("dap", RootCmd.Flags().Lookup("dap"))
	viper.BindPFlag("debug-adapter", RootCmd.Flags().Lookup("debug-adapter"))
	viper.BindPFlag("script", RootCmd.Flags().Lookup("script"))
	viper.BindPFlag("verbose", RootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetDefault("script", "")

	viper.RegisterAlias("debug_adapter", "debug-adapter")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		color.Yellow("batchdbg: using config file:%v", viper.ConfigFileUsed())
	}
}
