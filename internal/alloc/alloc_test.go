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

package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	n int
}

func newWidgetType() *TypeDescriptor[*widget] {
	return NewType[*widget]("widget", 16, nil, func() *widget { return &widget{} })
}

func TestAllocDeallocRoundTrip(t *testing.T) {
	typ := newWidgetType()
	pool := typ.NewPool()

	item := pool.Alloc()
	require.NotNil(t, item)
	item.Value.n = 42
	assert.Equal(t, 42, item.Value.n)

	pool.Dealloc(item)

	stats := typ.Stats()
	assert.EqualValues(t, typ.Config().Batch, stats.TotalAllocFromHeap)
	assert.EqualValues(t, typ.Config().Batch, stats.HeldByThreads)
}

func TestAllocReusesFreedItems(t *testing.T) {
	typ := newWidgetType()
	pool := typ.NewPool()

	first := pool.Alloc()
	pool.Dealloc(first)
	second := pool.Alloc()

	assert.Same(t, first, second)
}

func TestDeallocDoubleFreePanics(t *testing.T) {
	typ := newWidgetType()
	pool := typ.NewPool()

	item := pool.Alloc()
	pool.Dealloc(item)

	assert.PanicsWithValue(t, DebugCorruption{Reason: "double free"}, func() {
		pool.Dealloc(item)
	})
}

func TestDeallocCorruptedSentinelPanics(t *testing.T) {
	typ := newWidgetType()
	pool := typ.NewPool()

	item := pool.Alloc()
	item.front = 0

	assert.PanicsWithValue(t, DebugCorruption{Reason: "corrupted front sentinel"}, func() {
		pool.Dealloc(item)
	})
}

func TestDeallocWrongPoolPanics(t *testing.T) {
	typ := newWidgetType()
	poolA := typ.NewPool()
	poolB := newWidgetType().NewPool()

	item := poolA.Alloc()
	item.desc = poolB.desc

	assert.PanicsWithValue(t, DebugCorruption{Reason: "item freed to the wrong pool"}, func() {
		poolA.Dealloc(item)
	})
}

func TestRebalanceToGlobalAndBackToThreads(t *testing.T) {
	typ := newWidgetType()
	cfg := typ.Config()
	pool := typ.NewPool()

	items := make([]*Item[*widget], 0, cfg.LocalMax+cfg.Batch)
	for i := 0; i < cfg.LocalMax+cfg.Batch; i++ {
		items = append(items, pool.Alloc())
	}
	for _, it := range items {
		pool.Dealloc(it)
	}

	stats := typ.Stats()
	assert.GreaterOrEqual(t, stats.BatchesRebalancedToGlobal, uint64(1))

	other := typ.NewPool()
	other.Alloc()

	stats = typ.Stats()
	assert.GreaterOrEqual(t, stats.BatchesRebalancedToThreads, uint64(1))
}

func TestTotalSizeIncludesExtra(t *testing.T) {
	typ := NewType[*widget]("widget-extra", 16, func() int { return 512 }, func() *widget { return &widget{} })
	assert.Equal(t, 528, typ.TotalSize())
}

func TestBigVsSmallDefaultConfig(t *testing.T) {
	small := NewType[*widget]("small", 32, nil, func() *widget { return &widget{} })
	big := NewType[*widget]("big", 512, nil, func() *widget { return &widget{} })

	assert.Equal(t, Config{Batch: 64, LocalMax: 128, GlobalMax: 0}, small.Config())
	assert.Equal(t, Config{Batch: 16, LocalMax: 32, GlobalMax: 0}, big.Config())
}
