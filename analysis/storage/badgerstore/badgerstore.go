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

// Package badgerstore keeps snapshots of code property graphs in a badger key-value database.
//
// Nodes are stored under "n/" and edges under "e/", followed by their big-endian ID, so that iterating over a prefix
// returns them in ID order. Values are JSON objects in the format of the JSON export of the frontend.
package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/dgraph-io/badger/v4"
)

var (
	nodePrefix = []byte("n/")
	edgePrefix = []byte("e/")
)

// ErrNoSnapshot is returned by Load when the directory does not contain a database
var ErrNoSnapshot = errors.New("no graph snapshot")

// badgerLogger demotes badger's informational messages to debug messages
type badgerLogger struct {
	*config.LogGroup
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.LogGroup.Debugf("badger: "+format, args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.LogGroup.Tracef("badger: "+format, args...)
}

// Open opens the database in dir, creating it if needed. The logger may be nil.
func Open(dir string, logger *config.LogGroup) (*badger.DB, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w", dir, err)
	}
	opts := badger.DefaultOptions(dir)
	if logger != nil {
		opts = opts.WithLogger(badgerLogger{logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

func key(prefix []byte, id int64) []byte {
	k := make([]byte, len(prefix)+8)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[len(prefix):], uint64(id))
	return k
}

// Save replaces the snapshot in dir with g
func Save(ctx context.Context, dir string, g *cpg.Graph, logger *config.LogGroup) error {
	db, err := Open(dir, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.DropAll(); err != nil {
		return fmt.Errorf("clear database: %w", err)
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()
	jg := cpg.ToJSON(g)
	for _, n := range jg.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err := wb.Set(key(nodePrefix, n.ID), v); err != nil {
			return fmt.Errorf("write node %d: %w", n.ID, err)
		}
	}
	for i, e := range jg.Edges {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := wb.Set(key(edgePrefix, int64(i)), v); err != nil {
			return fmt.Errorf("write edge %d: %w", i, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if logger != nil {
		logger.Infof("Saved %d nodes and %d edges in %s", len(jg.Nodes), len(jg.Edges), dir)
	}
	return nil
}

// Load reads the snapshot in dir
func Load(ctx context.Context, dir string, logger *config.LogGroup) (*cpg.Graph, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w in %s: %v", ErrNoSnapshot, dir, err)
	}
	db, err := Open(dir, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var jg cpg.JSONGraph
	err = db.View(func(txn *badger.Txn) error {
		if err := scan(ctx, txn, nodePrefix, func(v []byte) error {
			var n cpg.JSONNode
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			jg.Nodes = append(jg.Nodes, n)
			return nil
		}); err != nil {
			return fmt.Errorf("read nodes: %w", err)
		}
		if err := scan(ctx, txn, edgePrefix, func(v []byte) error {
			var e cpg.JSONEdge
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			jg.Edges = append(jg.Edges, e)
			return nil
		}); err != nil {
			return fmt.Errorf("read edges: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(jg.Nodes) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSnapshot, dir)
	}
	return cpg.FromJSON(jg)
}

// scan calls f on the values of the keys with the prefix, in key order
func scan(ctx context.Context, txn *badger.Txn, prefix []byte, f func([]byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := it.Item().Value(f); err != nil {
			return err
		}
	}
	return nil
}
