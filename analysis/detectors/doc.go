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
Package detectors implements the vulnerability detectors. Each detector is a pattern over the code property graph,
written with the traversal primitives of the query package, and produces rows of a fixed schema.

The detectors are:
  - dangerous-functions: every call to a function of the dangerous-functions list.
  - double-free: a value returned by an allocation function that reaches two calls to the matching release function,
    the second one after the first in the control flow.
  - use-after-free: a value returned by an allocation function that is used after being released.
  - format-strings: a call to a printf-like function whose format argument is not a constant.
  - malloc-buffer-overflow: a read into a heap buffer of a size at least the size of the allocation.
  - static-buffer-overflow: a read into a stack buffer of a size at least the size of the buffer. The layout of the
    stack frame is inferred from the arithmetic on the frame pointer.
  - bo-loops: a loop that stores at an address indexed by a variable that no loop condition compares.
  - bo-scanf-loops: a loop that reads into a buffer with scanf until the buffer holds a sentinel value.
  - bo-memcpy: a copy into a static buffer from a parameter tainted through its callers.
  - tainted-direct: a value returned by a source that flows into a sink of the same function.
  - tainted-indirect: a value returned by a source that is used as the target of an indirect call.
  - tainted-calls: the interprocedural propagation of the tainted parameters (see the taint package).
  - unreachable-code: functions that contain instructions with no predecessor in the control flow.

Results are deterministic: functions are visited in ID order, and so are the candidates inside each function.
Functions in the ignore list of the config are not visited.
*/
package detectors
