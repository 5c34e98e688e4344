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
Package taint implements the interprocedural taint propagation between the functions of a program.

The propagation starts from the tainted parameters of the config, e.g. the argc and argv parameters of $main. Each
round of the propagation processes a worklist of functions with tainted parameters: the calls that a tainted
parameter flows into are either calls to sinks, which are reported, or calls to other functions, whose parameters at
the positions of the tainted arguments become tainted in the next round. A callee is added to the worklist at most
once over the whole propagation, so the propagation terminates on recursive programs.

The functions of a round are processed in parallel; the rounds themselves are sequential. Findings are ordered by
round and then by the order of the worklist, so the result does not depend on the scheduling of the goroutines.
*/
package taint
