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

package taint

import "sync"

// VisitedSet is a set of function names that is safe for concurrent use. Names are never removed.
type VisitedSet struct {
	mu    sync.Mutex
	names map[string]bool
}

// NewVisitedSet returns an empty set
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{names: map[string]bool{}}
}

// TryAdd adds name to the set and returns true if it was not already in it. When two goroutines add the same name,
// exactly one of them gets true.
func (v *VisitedSet) TryAdd(name string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.names[name] {
		return false
	}
	v.names[name] = true
	return true
}

// Contains returns true if name is in the set
func (v *VisitedSet) Contains(name string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.names[name]
}

// Len returns the number of names in the set
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.names)
}
