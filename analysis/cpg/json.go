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

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// JSONNode is the representation of a node in the JSON export of the frontend
type JSONNode struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	InstType string `json:"instType,omitempty"`
	Label    string `json:"label,omitempty"`
	Opcode   string `json:"opcode,omitempty"`
	NArgs    int    `json:"nargs,omitempty"`
	Index    int    `json:"index,omitempty"`
	IsImport bool   `json:"isImport,omitempty"`
	IsExport bool   `json:"isExport,omitempty"`
}

// JSONEdge is the representation of an edge in the JSON export of the frontend
type JSONEdge struct {
	Src         int64  `json:"src"`
	Dest        int64  `json:"dest"`
	Type        string `json:"type"`
	Arg         *int   `json:"arg,omitempty"`
	Label       string `json:"label,omitempty"`
	PDGType     string `json:"pdgType,omitempty"`
	ConstType   string `json:"constType,omitempty"`
	ConstValueI *int64 `json:"constValueI,omitempty"`
	// Value is the constant object of Const edges written by the frontend JSON writer
	Value *JSONConst `json:"value,omitempty"`
}

// JSONConst is a typed constant. Value holds the number as written, quoted or not.
type JSONConst struct {
	Type  string      `json:"type"`
	Value json.Number `json:"value"`
}

// Int returns the integer payload of an i32 or i64 constant
func (c *JSONConst) Int() (int64, bool) {
	if c == nil || (c.Type != "i32" && c.Type != "i64") {
		return 0, false
	}
	v, err := c.Value.Int64()
	if err != nil {
		return 0, false
	}
	return v, true
}

// JSONGraph is the top-level object of the JSON export
type JSONGraph struct {
	Nodes []JSONNode `json:"nodes"`
	Edges []JSONEdge `json:"edges"`
}

// Older frontends write direct calls with this instruction type
const legacyCallInstType = "Cal"

// Decode reads a graph in the JSON export format from r
func Decode(r io.Reader) (*Graph, error) {
	var jg JSONGraph
	dec := json.NewDecoder(r)
	if err := dec.Decode(&jg); err != nil {
		return nil, fmt.Errorf("could not decode graph: %w", err)
	}
	return FromJSON(jg)
}

// FromJSON builds a graph from its decoded JSON representation. Node keys are the decimal JSON ids.
func FromJSON(jg JSONGraph) (*Graph, error) {
	b := NewBuilder()
	for _, jn := range jg.Nodes {
		if _, err := b.AddNode(NodeFromJSON(jn)); err != nil {
			return nil, err
		}
	}
	for i, je := range jg.Edges {
		src, ok := b.Lookup(strconv.FormatInt(je.Src, 10))
		if !ok {
			return nil, fmt.Errorf("edge %d: %w: %d", i, ErrNodeNotFound, je.Src)
		}
		dest, ok := b.Lookup(strconv.FormatInt(je.Dest, 10))
		if !ok {
			return nil, fmt.Errorf("edge %d: %w: %d", i, ErrNodeNotFound, je.Dest)
		}
		e := EdgeFromJSON(je)
		e.Src, e.Dest = src, dest
		if _, err := b.AddEdge(e); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return b.Freeze(), nil
}

// NodeFromJSON converts a JSON node. The ID is left for the builder to assign.
func NodeFromJSON(jn JSONNode) Node {
	instType := jn.InstType
	if instType == legacyCallInstType {
		instType = InstCall
	}
	return Node{
		Key:      strconv.FormatInt(jn.ID, 10),
		Kind:     NodeKind(jn.Type),
		Name:     jn.Name,
		InstType: instType,
		Label:    jn.Label,
		Opcode:   jn.Opcode,
		NArgs:    jn.NArgs,
		Index:    jn.Index,
		IsImport: jn.IsImport,
		IsExport: jn.IsExport,
	}
}

// EdgeFromJSON converts a JSON edge. Src and Dest are the JSON ids and must be resolved by the caller.
func EdgeFromJSON(je JSONEdge) Edge {
	e := Edge{
		Kind:      EdgeKind(je.Type),
		Src:       je.Src,
		Dest:      je.Dest,
		Arg:       NoArg,
		PDGType:   PDGType(je.PDGType),
		Label:     je.Label,
		ValueType: je.ConstType,
	}
	if je.Arg != nil {
		e.Arg = *je.Arg
	}
	if je.ConstValueI != nil {
		e.ValueI = Int64(*je.ConstValueI)
	} else if v, ok := je.Value.Int(); ok {
		e.ValueI = Int64(v)
	}
	if e.ValueType == "" && je.Value != nil {
		e.ValueType = je.Value.Type
	}
	return e
}

// ToJSON returns the JSON representation of g. JSON ids are the node IDs of g.
func ToJSON(g *Graph) JSONGraph {
	jg := JSONGraph{
		Nodes: make([]JSONNode, 0, g.Order()),
		Edges: make([]JSONEdge, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		jg.Nodes = append(jg.Nodes, JSONNode{
			ID:       n.ID,
			Type:     string(n.Kind),
			Name:     n.Name,
			InstType: n.InstType,
			Label:    n.Label,
			Opcode:   n.Opcode,
			NArgs:    n.NArgs,
			Index:    n.Index,
			IsImport: n.IsImport,
			IsExport: n.IsExport,
		})
	}
	for _, e := range g.edges {
		je := JSONEdge{
			Src:         e.Src,
			Dest:        e.Dest,
			Type:        string(e.Kind),
			Label:       e.Label,
			PDGType:     string(e.PDGType),
			ConstType:   e.ValueType,
			ConstValueI: e.ValueI,
		}
		if e.Arg != NoArg {
			arg := e.Arg
			je.Arg = &arg
		}
		jg.Edges = append(jg.Edges, je)
	}
	return jg
}

// Encode writes g to w in the JSON export format
func Encode(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(ToJSON(g)); err != nil {
		return fmt.Errorf("could not encode graph: %w", err)
	}
	return nil
}
