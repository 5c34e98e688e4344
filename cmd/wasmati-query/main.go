// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// wasmati-query runs vulnerability detectors on the code property graph of a WebAssembly binary.
package main

import (
	"fmt"
	"os"

	"github.com/darkmacheken/wasmati/analysis"
	"github.com/spf13/cobra"
)

var (
	configPath string
	graphURL   string

	rootCmd = &cobra.Command{
		Use:   "wasmati-query",
		Short: "Query code property graphs of WebAssembly binaries for vulnerabilities",
		Long: `wasmati-query runs vulnerability detectors on the code property graph of a WebAssembly binary: dangerous
functions, double free, use after free, format strings, buffer overflows, tainted flows and unreachable code.

The graph is the JSON export of the frontend (a path or any URL afs supports), a SQLite database (sqlite://<path>)
or a badger snapshot (badger://<dir>).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), analysis.Version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&graphURL, "graph", "", "URL of the code property graph")
	rootCmd.Version = analysis.Version
	rootCmd.AddCommand(scanCmd, importCmd, statsCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		errExit(err)
	}
}

func errExit(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if hint := HintForErrorMessage(err.Error()); hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(2)
}
