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

// Package query contains the traversal primitives the vulnerability detectors are written with: bounded-hop
// descendants along one edge layer, attribute-constrained reachability, and incident edge lookups.
//
// Every primitive returns its results in ascending ID order, so that the output of the detectors does not depend
// on the order in which a store enumerates its nodes. The primitives never modify the store.
//
// Traversals check their context regularly. When the context expires before a traversal completes, the traversal
// returns an error wrapping [ErrInconclusive]; callers should treat the query as neither true nor false.
package query

import (
	"context"
	"errors"
	"fmt"
)

// Unbounded is the maximum number of hops of a traversal without upper bound
const Unbounded = -1

// contextCheckInterval is the number of nodes visited by a traversal between two checks of its context
const contextCheckInterval = 256

// ErrInconclusive is returned by traversals that were interrupted before they could reach a result
var ErrInconclusive = errors.New("query inconclusive")

// Direction selects the incident edges of a node
type Direction int

const (
	// Out selects the edges leaving a node
	Out Direction = iota
	// In selects the edges entering a node
	In
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// checkContext returns an error wrapping ErrInconclusive when ctx is done. Steps are counted from 1; it only looks at
// ctx on the first step and every contextCheckInterval steps after.
func checkContext(ctx context.Context, steps int) error {
	if (steps-1)%contextCheckInterval != 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInconclusive, err)
	}
	return nil
}
