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

/*
Package config provides a simple way to manage configuration files.

Use [Load](filename) to load a configuration from a specific filename.

Use [SetGlobalConfig](filename) to set filename as the global config, and then [LoadGlobal]() to load the global config.

A config file should be in yaml or json format. The top-level fields can be any of the fields defined in the Config
struct type. Every top-level key that is absent keeps its default value (see [NewDefault]); a key that is present
replaces the default value entirely. For example, a valid config file is as follows:

	options:
	  log-level: 4
	  detector-timeout: 30s
	  frame-pointer: $g0

	dangerous-functions: [$gets, $strcpy]

	buffer-overflow:
	  $read:
	    buffer: 1
	    size: 2
	  $gets:
	    buffer: 0

	tainted:
	  $main:
	    params: [0, 1]

# Validation

Configs are validated when they are loaded. A missing or malformed key makes [Load] fail with an error that wraps
[ErrInvalidConfig] and names the key, e.g. "missing key buffer-overflow[$read].buffer".

# Function names

Functions are named the way the CPG frontend names them, which is usually the name of the symbol prefixed with a
dollar sign ($malloc, $main). Names are matched exactly.

# Imports and exports

The functions imported by a module have no body in the graph. With import-as-sources and import-as-sinks, every
imported function is a source or a sink of the taint detectors, in addition to the ones listed in sources and sinks.
With exported-as-sinks, the parameters of every exported function are tainted. Functions listed in white-list are
exempt from both. All three options are off by default.

The functions listed in ignore (mostly libc internals) are not inspected by any detector.
*/
package config
