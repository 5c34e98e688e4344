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

package config

import "time"

const (
	// DefaultDetectorTimeout is the time budget of each detector when the config does not set one
	DefaultDetectorTimeout = 5 * time.Minute

	// DefaultFramePointer is the global holding the stack pointer in modules compiled by clang/emscripten
	DefaultFramePointer = "$g0"

	// DefaultSubOpcode is the opcode of the instruction allocating a stack frame
	DefaultSubOpcode = "i32.sub"

	// DefaultAddOpcode is the opcode of the instructions computing buffer addresses in a stack frame
	DefaultAddOpcode = "i32.add"

	// DefaultConstType is the type of the constants used in frame computations
	DefaultConstType = "i32"
)

// Default values of the top-level keys. They are used for every key that is absent from a config file.
var (
	defaultDangerousFunctions = []string{"$gets", "$strcpy", "$strcat", "$sprintf", "$vsprintf"}

	defaultIgnore = []string{
		"$fgets",
		"$__stdio_read",
		"$__stdio_write",
		"$__stdio_seek",
		"$__fwritex",
		"$exit",
		"$dlmalloc",
		"$dlfree",
		"$dlrealloc",
		"$setenv",
		"$decfloat",
		"$sn_write",
		"$sbrk",
		"$__strdup",
		"$__expand_heap",
		"$raise",
		"$emscripten_memcpy_big",
		"$emscripten_resize_heap",
	}

	defaultSinks = []string{"$strcpy", "$__stpcpy", "$memcpy"}

	defaultMalloc = []string{"$malloc"}

	defaultMemcpy = []string{"$memcpy"}

	defaultScanf = []string{"$scanf"}
)

func defaultTainted() map[string]TaintedSpec {
	return map[string]TaintedSpec{
		"$main": {Params: []int{0, 1}},
		"$bof":  {Params: []int{1}},
	}
}

func defaultBufferOverflow() map[string]BufferOverflowSpec {
	return map[string]BufferOverflowSpec{
		"$read":  {Buffer: intPtr(1), Size: intPtr(2)},
		"$fgets": {Buffer: intPtr(0), Size: intPtr(1)},
		"$gets":  {Buffer: intPtr(0)},
	}
}

func defaultFormatString() map[string]int {
	return map[string]int{
		"$fprintf":   1,
		"$printf":    0,
		"$iprintf":   0,
		"$sprintf":   1,
		"$snprintf":  2,
		"$vfprintf":  1,
		"$vprintf":   0,
		"$vsprintf":  1,
		"$vsnprintf": 2,
		"$syslog":    1,
		"$vsyslog":   1,
	}
}

func defaultControlFlow() []ControlFlowSpec {
	return []ControlFlowSpec{{Source: "$malloc", Dest: "$free"}}
}

func intPtr(x int) *int {
	return &x
}
