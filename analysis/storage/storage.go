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

// Package storage opens code property graphs from the stores they can be kept in, and fingerprints them.
//
// A graph is designated by a URL:
//   - sqlite://<path> is a database written by sqlitestore
//   - badger://<dir> is a snapshot written by badgerstore
//   - anything else is the JSON export of the frontend, read with afs: a local path, file://, mem:// or any other
//     scheme afs supports.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/cpg"
	"github.com/darkmacheken/wasmati/analysis/storage/badgerstore"
	"github.com/darkmacheken/wasmati/analysis/storage/sqlitestore"
	"github.com/minio/highwayhash"
	"github.com/viant/afs"
)

const (
	// SQLiteScheme is the scheme of the URLs of SQLite databases
	SQLiteScheme = "sqlite://"
	// BadgerScheme is the scheme of the URLs of badger snapshots
	BadgerScheme = "badger://"
)

// ErrUnavailable is returned when a graph cannot be loaded from its store
var ErrUnavailable = errors.New("graph store unavailable")

// fingerprintKey is the fixed highwayhash key of the fingerprints; fingerprints identify graphs, they are not MACs
var fingerprintKey = []byte("wasmati-query/cpg/fingerprint/v1")

// Open loads the graph designated by url. The logger may be nil.
func Open(ctx context.Context, url string, logger *config.LogGroup) (*cpg.Graph, error) {
	var (
		g   *cpg.Graph
		err error
	)
	switch {
	case strings.HasPrefix(url, SQLiteScheme):
		g, err = sqlitestore.Load(ctx, strings.TrimPrefix(url, SQLiteScheme))
	case strings.HasPrefix(url, BadgerScheme):
		g, err = badgerstore.Load(ctx, strings.TrimPrefix(url, BadgerScheme), logger)
	default:
		g, err = LoadJSON(ctx, url)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, url, err)
	}
	if logger != nil {
		logger.Infof("Loaded %d nodes from %s", g.Order(), url)
	}
	return g, nil
}

// LoadJSON reads the JSON export at url
func LoadJSON(ctx context.Context, url string) (*cpg.Graph, error) {
	fs := afs.New()
	content, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, err
	}
	return cpg.Decode(bytes.NewReader(content))
}

// Save writes g to the store designated by url. JSON exports are written with afs.
func Save(ctx context.Context, url string, g *cpg.Graph, logger *config.LogGroup) error {
	switch {
	case strings.HasPrefix(url, SQLiteScheme):
		return sqlitestore.Save(ctx, strings.TrimPrefix(url, SQLiteScheme), g)
	case strings.HasPrefix(url, BadgerScheme):
		return badgerstore.Save(ctx, strings.TrimPrefix(url, BadgerScheme), g, logger)
	default:
		var buf bytes.Buffer
		if err := cpg.Encode(&buf, g); err != nil {
			return err
		}
		return afs.New().Upload(ctx, url, 0o644, &buf)
	}
}

// Fingerprint returns a hash of the content of g. Two graphs with the same nodes and edges in the same order have
// the same fingerprint, whatever store they were loaded from.
func Fingerprint(g *cpg.Graph) (string, error) {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return "", err
	}
	if err := cpg.Encode(h, g); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
