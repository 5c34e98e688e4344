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

// Package formatutil formats the text the command line tools print on terminals.
package formatutil

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/term"
)

// Enabled controls whether the styles emit escape sequences. It is true when the standard output is a terminal.
var Enabled = term.IsTerminal(int(os.Stdout.Fd()))

var (
	Bold   = style("1")
	Faint  = style("2")
	Red    = style("1;31")
	Green  = style("1;32")
	Yellow = style("1;33")
	Cyan   = style("1;36")
)

func style(code string) func(...any) string {
	return func(args ...any) string {
		if !Enabled {
			return fmt.Sprint(args...)
		}
		return "\033[" + code + "m" + fmt.Sprint(args...) + "\033[0m"
	}
}

// Count formats a number of findings: in green when there are none, in red otherwise
func Count(n int) string {
	if n == 0 {
		return Green(strconv.Itoa(n))
	}
	return Red(strconv.Itoa(n))
}

// Sanitize escapes the control characters of s. Names read from a binary are sanitized before being printed.
func Sanitize(s string) string {
	r := strconv.Quote(s)
	return r[1 : len(r)-1]
}
