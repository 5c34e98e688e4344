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

package cpg

import "errors"

var (
	// ErrGraphFrozen is returned when a builder is used after Freeze
	ErrGraphFrozen = errors.New("graph is frozen")

	// ErrNodeNotFound is returned when an edge references a node that has not been added
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when two nodes share the same key
	ErrDuplicateNode = errors.New("duplicate node key")

	// ErrSecondASTParent is returned when an AST edge would give a node a second parent
	ErrSecondASTParent = errors.New("node already has an AST parent")

	// ErrUnknownEdgeKind is returned for edges whose kind is not AST, CFG, CG or PDG
	ErrUnknownEdgeKind = errors.New("unknown edge kind")
)
