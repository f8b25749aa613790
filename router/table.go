// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package router implements the minimal address-to-link directory the
// message/iterator packages need a real caller for: a lookup keyed by the
// bytes an ADDRESS_HASH/NODE_HASH iterator view yields. It does not
// implement routing policy (next-hop selection, propagation, cost), only
// the directory a policy layer would consult.
package router

import (
	"net/http"
	"sync"

	"github.com/goccy/go-json"

	"github.com/packetd/dispatchd/iterator"
)

// LinkID identifies one outbound link a message may be forwarded over.
// The router core treats it as opaque.
type LinkID uint64

// Table maps a router-address hash key to the links bound to it. A key may
// have more than one link bound (fan-out to multiple subscribers of the
// same address). Table is safe for concurrent use: an RLock-guarded read
// path and a Lock-guarded mutation path, with no lock held across a caller
// callback.
type Table struct {
	mu    sync.RWMutex
	links map[string][]LinkID
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{links: make(map[string][]LinkID)}
}

// Bind associates link with address. Binding the same link twice is a
// no-op.
func (t *Table) Bind(address string, link LinkID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, existing := range t.links[address] {
		if existing == link {
			return
		}
	}
	t.links[address] = append(t.links[address], link)
}

// Unbind removes link's association with address, if present, and drops
// the address entry entirely once its last link is gone.
func (t *Table) Unbind(address string, link LinkID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	links := t.links[address]
	for i, existing := range links {
		if existing == link {
			t.links[address] = append(links[:i], links[i+1:]...)
			break
		}
	}
	if len(t.links[address]) == 0 {
		delete(t.links, address)
	}
}

// Lookup returns the links currently bound to address, or nil if none.
func (t *Table) Lookup(address string) []LinkID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]LinkID(nil), t.links[address]...)
}

// LookupIterator resolves an ADDRESS_HASH or NODE_HASH iterator's key
// directly, materializing its bytes exactly once.
func (t *Table) LookupIterator(it *iterator.Iterator) []LinkID {
	return t.Lookup(string(it.Copy()))
}

// Len returns the number of distinct addresses currently bound.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.links)
}

// Snapshot returns a point-in-time copy of the whole table, address to its
// bound links, safe to range over after Snapshot returns.
func (t *Table) Snapshot() map[string][]LinkID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]LinkID, len(t.links))
	for address, links := range t.links {
		out[address] = append([]LinkID(nil), links...)
	}
	return out
}

// ServeHTTP renders Snapshot as JSON, for the /router/table debug route.
func (t *Table) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(t.Snapshot())
}
