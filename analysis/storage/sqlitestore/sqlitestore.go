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

// Package sqlitestore saves code property graphs in SQLite databases and loads them back.
//
// A database has a nodes table and an edges table. The attributes of each node and edge are stored as a JSON object
// in the properties column, in the format of the JSON export of the frontend.
package sqlitestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/darkmacheken/wasmati/analysis/cpg"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE nodes (
    id INTEGER PRIMARY KEY,
    kind TEXT NOT NULL,
    name TEXT,
    properties TEXT NOT NULL
);

CREATE TABLE edges (
    id INTEGER PRIMARY KEY,
    source INTEGER NOT NULL,
    target INTEGER NOT NULL,
    kind TEXT NOT NULL,
    properties TEXT NOT NULL
);

CREATE INDEX idx_edges_source ON edges(source, kind);
CREATE INDEX idx_edges_target ON edges(target, kind);
`

// Save writes g to a new database at path. An existing file at path is replaced.
func Save(ctx context.Context, path string, g *cpg.Graph) (err error) {
	_ = os.Remove(path)
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()
	conn.SetInterrupt(ctx.Done())

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer endFn(&err)

	jg := cpg.ToJSON(g)
	if err := insertNodes(conn, jg.Nodes); err != nil {
		return err
	}
	return insertEdges(conn, jg.Edges)
}

func insertNodes(conn *sqlite.Conn, nodes []cpg.JSONNode) error {
	stmt, err := conn.Prepare(`INSERT INTO nodes (id, kind, name, properties) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, n := range nodes {
		props, err := json.Marshal(n)
		if err != nil {
			return err
		}
		stmt.BindInt64(1, n.ID)
		stmt.BindText(2, n.Type)
		if n.Name == "" {
			stmt.BindNull(3)
		} else {
			stmt.BindText(3, n.Name)
		}
		stmt.BindText(4, string(props))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert node %d: %w", n.ID, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func insertEdges(conn *sqlite.Conn, edges []cpg.JSONEdge) error {
	stmt, err := conn.Prepare(`INSERT INTO edges (id, source, target, kind, properties) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, e := range edges {
		props, err := json.Marshal(e)
		if err != nil {
			return err
		}
		stmt.BindInt64(1, int64(i))
		stmt.BindInt64(2, e.Src)
		stmt.BindInt64(3, e.Dest)
		stmt.BindText(4, e.Type)
		stmt.BindText(5, string(props))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert edge %d→%d: %w", e.Src, e.Dest, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

// Load reads the graph of the database at path
func Load(ctx context.Context, path string) (*cpg.Graph, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer func() { _ = conn.Close() }()
	conn.SetInterrupt(ctx.Done())

	var jg cpg.JSONGraph
	err = sqlitex.ExecuteTransient(conn, `SELECT properties FROM nodes ORDER BY id`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			var n cpg.JSONNode
			if err := json.Unmarshal([]byte(stmt.ColumnText(0)), &n); err != nil {
				return fmt.Errorf("node properties: %w", err)
			}
			jg.Nodes = append(jg.Nodes, n)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("read nodes: %w", err)
	}
	err = sqlitex.ExecuteTransient(conn, `SELECT properties FROM edges ORDER BY id`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			var e cpg.JSONEdge
			if err := json.Unmarshal([]byte(stmt.ColumnText(0)), &e); err != nil {
				return fmt.Errorf("edge properties: %w", err)
			}
			jg.Edges = append(jg.Edges, e)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("read edges: %w", err)
	}
	return cpg.FromJSON(jg)
}
