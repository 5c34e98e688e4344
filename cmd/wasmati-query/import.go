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
	"strings"

	"github.com/darkmacheken/wasmati/analysis/storage"
	"github.com/spf13/cobra"
)

var (
	importDB string

	importCmd = &cobra.Command{
		Use:   "import",
		Short: "Copy a graph into a badger snapshot or a SQLite database",
		Long: `Copy a graph into a badger snapshot or a SQLite database, so that later scans do not decode the JSON export.

The destination is a badger directory, or a URL: sqlite://<path> or badger://<dir>.`,
		Args: cobra.NoArgs,
		RunE: runImport,
	}
)

func init() {
	importCmd.Flags().StringVar(&importDB, "db", "", "destination of the graph")
}

func runImport(cmd *cobra.Command, _ []string) error {
	if graphURL == "" || importDB == "" {
		return fmt.Errorf("import needs both --graph and --db")
	}
	_, logger, err := loadConfig()
	if err != nil {
		return err
	}
	g, err := storage.Open(cmd.Context(), graphURL, logger)
	if err != nil {
		return err
	}
	dest := destinationURL(importDB)
	if err := storage.Save(cmd.Context(), dest, g, logger); err != nil {
		return fmt.Errorf("could not save graph in %s: %w", dest, err)
	}
	fingerprint, err := storage.Fingerprint(g)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d nodes, fingerprint %s)\n", dest, g.Order(), fingerprint)
	return nil
}

// destinationURL returns the URL of an import destination; a plain directory is a badger snapshot
func destinationURL(db string) string {
	if strings.HasPrefix(db, storage.SQLiteScheme) || strings.HasPrefix(db, storage.BadgerScheme) {
		return db
	}
	return storage.BadgerScheme + db
}
