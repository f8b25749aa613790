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

// Package alloc implements the two-tier slab allocator shared by the buffer
// chain and message content pools: a global, mutex-guarded free list per
// type backed by a per-worker Pool that services Alloc/Dealloc without
// locking on the common path. Worker goroutines rebalance against the
// global pool in fixed-size batches whenever their local list runs dry or
// overflows, so the lock is only ever held for a batch move or for the
// first-touch initialization of a TypeDescriptor.
//
// Go has no thread-local storage, so this package never reaches for a
// hidden per-thread slot: callers that want the fast uncontended path
// must hold on to their own *Pool[T] (typically one per worker goroutine,
// see daemon.runWorker) and not share it across goroutines.
package alloc

import (
	"sync"
)

// bigThreshold splits pooled types into "big" and "small" batch configs: a
// type whose instances are larger than this many bytes churns the global
// pool less eagerly.
const bigThreshold = 256

// Debug-mode sentinel values bracketing each pooled item. They exist to
// catch two programmer errors: writing past an item's bounds (front/back
// pattern mismatch) and freeing the same item twice (descriptor already
// cleared). Go's memory safety means an out-of-bounds write can't corrupt
// these the way an unchecked payload overrun could in a hand-managed
// allocator; they still catch double-Dealloc and Dealloc-on-the-wrong-pool.
const (
	patternFront uint32 = 0xdeadbeef
	patternBack  uint32 = 0xbabecafe
)

// Config controls batch rebalancing for one type.
type Config struct {
	// Batch is the number of items moved between a Pool and the global
	// free list on each rebalance.
	Batch int
	// LocalMax is the high-water mark: a Pool holding more than LocalMax
	// free items pushes one Batch back to the global list.
	LocalMax int
	// GlobalMax caps the global free list; 0 means unbounded. Items
	// trimmed past GlobalMax are simply dropped (freed to the Go heap)
	// rather than returned to any pool.
	GlobalMax int
}

func defaultConfig(totalSize int) Config {
	if totalSize > bigThreshold {
		return Config{Batch: 16, LocalMax: 32, GlobalMax: 0}
	}
	return Config{Batch: 64, LocalMax: 128, GlobalMax: 0}
}

// Stats is a point-in-time snapshot of one type's allocation counters.
type Stats struct {
	TotalAllocFromHeap         uint64
	TotalFreeToHeap            uint64
	HeldByThreads              int64
	BatchesRebalancedToThreads uint64
	BatchesRebalancedToGlobal  uint64
}

// TypeDescriptor describes one pooled Go type: how to construct a fresh
// value and, optionally, a runtime-computed "extra size" contribution
// (used by the buffer package to report its configurable payload capacity
// alongside the fixed struct overhead). One TypeDescriptor is shared by
// every Pool for that type; TypeDescriptor itself is safe for concurrent
// use, Pool is not.
type TypeDescriptor[T any] struct {
	name      string
	itemSize  int
	extraSize func() int
	newValue  func() T

	initOnce sync.Once
	mu       sync.Mutex
	config   Config
	totalSize int
	global    []*Item[T]
	stats     Stats
}

// NewType creates the descriptor for a new pooled type; it does not add it
// to any Registry (see Registry.Register). itemSize is the nominal size in
// bytes of one T (informational, reported via Stats/the allocagent
// collector; Go's runtime manages the real allocation). extraSize, if
// non-nil, is consulted once at first use to add a runtime-configured
// contribution to the reported size (the buffer package's configurable
// capacity is the only current user). newValue constructs a zero T each
// time the pool must grow.
func NewType[T any](name string, itemSize int, extraSize func() int, newValue func() T) *TypeDescriptor[T] {
	return &TypeDescriptor[T]{
		name:      name,
		itemSize:  itemSize,
		extraSize: extraSize,
		newValue:  newValue,
	}
}

func (d *TypeDescriptor[T]) init() {
	d.initOnce.Do(func() {
		total := d.itemSize
		if d.extraSize != nil {
			total += d.extraSize()
		}
		d.totalSize = total
		d.config = defaultConfig(total)
	})
}

// Name returns the type's registered name.
func (d *TypeDescriptor[T]) Name() string { return d.name }

// Config returns the batch configuration selected for this type.
func (d *TypeDescriptor[T]) Config() Config {
	d.init()
	return d.config
}

// TotalSize returns the nominal per-item size (itemSize plus any extraSize
// contribution), as reported to the management agent.
func (d *TypeDescriptor[T]) TotalSize() int {
	d.init()
	return d.totalSize
}

// Stats returns a snapshot of this type's counters.
func (d *TypeDescriptor[T]) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// NewPool creates a worker-local free list for this type. Callers own the
// returned Pool exclusively; it must not be shared across goroutines.
func (d *TypeDescriptor[T]) NewPool() *Pool[T] {
	d.init()
	return &Pool[T]{desc: d}
}

// DebugCorruption is the panic value for every allocator invariant
// violation Dealloc detects. Recovering code (see internal/rescue.
// HandleCrash) type-asserts for it to tell "the allocator observed state
// that should be unreachable" apart from an ordinary application panic,
// and re-panics after logging/counting rather than letting the process
// carry on with a corrupted free list.
type DebugCorruption struct {
	Reason string
}

func (e DebugCorruption) Error() string { return "alloc: " + e.Reason }

// Item is the unit returned by Pool.Alloc. Value holds the caller's
// payload; front/back/desc are the debug-mode guard fields checked on
// Dealloc.
type Item[T any] struct {
	front uint32
	back  uint32
	desc  *TypeDescriptor[T]

	Value T
}

// Pool is a single goroutine's free list for one type. It is not safe for
// concurrent use: the zero-lock fast path depends on exclusive ownership.
type Pool[T any] struct {
	desc *TypeDescriptor[T]
	free []*Item[T]
}

// Alloc returns a ready-to-use item, drawing from the local free list
// first and falling back to the global pool or a fresh heap allocation
// only when the local list is empty.
func (p *Pool[T]) Alloc() *Item[T] {
	if n := len(p.free); n > 0 {
		item := p.free[n-1]
		p.free = p.free[:n-1]
		item.front, item.back, item.desc = patternFront, patternBack, p.desc
		return item
	}
	return p.allocSlow()
}

func (p *Pool[T]) allocSlow() *Item[T] {
	d := p.desc
	d.mu.Lock()
	if len(d.global) >= d.config.Batch {
		n := len(d.global) - d.config.Batch
		batch := d.global[n:]
		d.global = d.global[:n:n]
		d.stats.BatchesRebalancedToThreads++
		d.stats.HeldByThreads += int64(d.config.Batch)
		d.mu.Unlock()
		p.free = append(p.free, batch...)
	} else {
		d.stats.TotalAllocFromHeap += uint64(d.config.Batch)
		d.stats.HeldByThreads += int64(d.config.Batch)
		d.mu.Unlock()
		for i := 0; i < d.config.Batch; i++ {
			p.free = append(p.free, &Item[T]{Value: d.newValue()})
		}
	}

	n := len(p.free)
	item := p.free[n-1]
	p.free = p.free[:n-1]
	item.front, item.back, item.desc = patternFront, patternBack, d
	return item
}

// Dealloc returns item to the pool it came from. It panics if item's guard
// fields have been tampered with or if item was already freed.
func (p *Pool[T]) Dealloc(item *Item[T]) {
	d := p.desc
	if item.front != patternFront {
		panic(DebugCorruption{Reason: "corrupted front sentinel"})
	}
	if item.back != patternBack {
		panic(DebugCorruption{Reason: "corrupted back sentinel"})
	}
	if item.desc == nil {
		panic(DebugCorruption{Reason: "double free"})
	}
	if item.desc != d {
		panic(DebugCorruption{Reason: "item freed to the wrong pool"})
	}
	item.desc = nil

	p.free = append(p.free, item)
	if len(p.free) <= d.config.LocalMax {
		return
	}

	n := len(p.free) - d.config.Batch
	batch := p.free[n:]
	p.free = p.free[:n:n]

	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.BatchesRebalancedToGlobal++
	d.stats.HeldByThreads -= int64(d.config.Batch)
	d.global = append(d.global, batch...)

	if d.config.GlobalMax > 0 {
		for len(d.global) > d.config.GlobalMax {
			last := len(d.global) - 1
			d.global[last] = nil
			d.global = d.global[:last]
			d.stats.TotalFreeToHeap++
		}
	}
}
