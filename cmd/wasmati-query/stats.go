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

package main

import (
	"fmt"

	"github.com/darkmacheken/wasmati/analysis"
	"github.com/darkmacheken/wasmati/analysis/storage"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics about a graph: node and edge counts, loops and recursive functions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if graphURL == "" {
			return fmt.Errorf("missing --graph")
		}
		_, logger, err := loadConfig()
		if err != nil {
			return err
		}
		g, err := storage.Open(cmd.Context(), graphURL, logger)
		if err != nil {
			return err
		}
		stats, err := analysis.GraphStatistics(cmd.Context(), g)
		if err != nil {
			return err
		}
		stats.Print(cmd.OutOrStdout())
		return nil
	},
}
