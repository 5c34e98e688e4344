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

import "regexp"

// Captures errors happening before any detector runs (the graph could not be loaded)
var regexStoreUnavailable = regexp.MustCompile("graph store unavailable")

// Captures the error of a badger directory without a snapshot
var regexNoSnapshot = regexp.MustCompile("no graph snapshot")

// Captures the decoding errors of JSON exports
var regexDecode = regexp.MustCompile("could not decode graph")

// Captures the error of an invalid configuration file
var regexConfig = regexp.MustCompile("invalid config|could not (read|unmarshal) config")

// Captures the error of a detector name that does not exist
var regexUnknownDetector = regexp.MustCompile("unknown detectors")

// HintForErrorMessage looks for specific error message and returns some other message that might help the user
// resolve the problem.
func HintForErrorMessage(errMsg string) string {
	switch {
	case regexStoreUnavailable.MatchString(errMsg):
		if regexNoSnapshot.MatchString(errMsg) {
			return "create the snapshot first with: wasmati-query import --graph <graph.json> --db <dir>"
		}
		if regexDecode.MatchString(errMsg) {
			return "the graph should be the JSON export of the frontend, with \"nodes\" and \"edges\" arrays"
		}
		return "check the --graph URL; use sqlite://<path> for SQLite databases and badger://<dir> for snapshots"
	case regexConfig.MatchString(errMsg):
		return "the error names the configuration key to fix; keys absent from the file keep their default value"
	case regexUnknownDetector.MatchString(errMsg):
		return "list the detectors with: wasmati-query scan --help"
	}
	return ""
}
