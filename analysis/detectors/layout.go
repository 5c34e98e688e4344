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

package detectors

import (
	"fmt"
	"sort"
	"strings"
)

// FrameLayout maps the offsets of the buffers of a stack frame to their sizes
type FrameLayout map[int64]int64

// NewFrameLayout partitions a stack frame of frameSize bytes by the buffer offsets. The frame base 0 is always an
// offset. The size of a buffer is the distance to the next offset, or to the end of the frame for the last buffer.
// Duplicate offsets are merged, and buffers with a non-positive size are dropped.
//
// For example, a frame of 160 bytes with buffers at 16, 32 and 96 has the layout @0:16 @16:16 @32:64 @96:64.
func NewFrameLayout(frameSize int64, offsets []int64) FrameLayout {
	distinct := map[int64]bool{0: true}
	for _, o := range offsets {
		distinct[o] = true
	}
	sorted := make([]int64, 0, len(distinct))
	for o := range distinct {
		sorted = append(sorted, o)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	layout := FrameLayout{}
	for i, o := range sorted {
		end := frameSize
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		if end-o > 0 {
			layout[o] = end - o
		}
	}
	return layout
}

// Offsets returns the offsets of the buffers in increasing order
func (l FrameLayout) Offsets() []int64 {
	offsets := make([]int64, 0, len(l))
	for o := range l {
		offsets = append(offsets, o)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets
}

func (l FrameLayout) String() string {
	var parts []string
	for _, o := range l.Offsets() {
		parts = append(parts, fmt.Sprintf("@%d:%d", o, l[o]))
	}
	return strings.Join(parts, " ")
}
