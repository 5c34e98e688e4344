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
Package cpg defines the code property graph that the vulnerability queries run on.

A code property graph is a single multigraph over the nodes of a compiled module (the module itself, its functions,
their parameters and their instructions) with four edge layers:
  - AST edges form a forest rooted at Function nodes. Every non-root node has exactly one AST parent. An AST edge may
    carry the positional index of the child among the arguments of its parent (see [Edge.Arg]).
  - CFG edges connect instructions of the same function in execution order. The CFG may contain cycles.
  - CG edges connect call sites to the functions they call.
  - PDG edges carry dependencies. A PDG edge has a [PDGType] and a label: Const edges carry a constant payload, Local
    and Global edges name the variable the value flows through, and Function edges labelled X track values that
    originate from a call to X.

Graphs are built with a [Builder] and frozen into an immutable [Graph]. The analyses only see graphs through the
read-only [Store] interface, and a [Graph] can be shared by concurrent queries without synchronization.

Graphs are usually exported by the CPG frontend; [Decode] reads its JSON export and [Encode] writes a graph back in
the same format.
*/
package cpg
