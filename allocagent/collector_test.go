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

package allocagent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/dispatchd/internal/alloc"
)

type widget struct{ n int }

func TestCollectorEmitsPerTypeSeries(t *testing.T) {
	registry := &alloc.Registry{}
	typ := alloc.NewType[*widget]("collector-widget", 16, nil, func() *widget { return &widget{} })
	registry.Register(typ)

	pool := typ.NewPool()
	item := pool.Alloc()
	pool.Dealloc(item)

	collector := NewCollector(registry)
	assert.Equal(t, 9, testutil.CollectAndCount(collector))

	expected := strings.NewReader(fmt.Sprintf(`
# HELP dispatchd_alloc_total_alloc_from_heap Items ever allocated from the Go heap for this type.
# TYPE dispatchd_alloc_total_alloc_from_heap counter
dispatchd_alloc_total_alloc_from_heap{type="collector-widget"} %d
`, typ.Config().Batch))

	require.NoError(t, testutil.CollectAndCompare(collector, expected, "dispatchd_alloc_total_alloc_from_heap"))

	cfg := typ.Config()
	configExpected := strings.NewReader(fmt.Sprintf(`
# HELP dispatchd_alloc_transfer_batch_size Items moved between a worker pool and the global free list on each rebalance.
# TYPE dispatchd_alloc_transfer_batch_size gauge
dispatchd_alloc_transfer_batch_size{type="collector-widget"} %d
# HELP dispatchd_alloc_local_free_list_max High-water mark of a worker pool's free list before it rebalances a batch back to the global list.
# TYPE dispatchd_alloc_local_free_list_max gauge
dispatchd_alloc_local_free_list_max{type="collector-widget"} %d
# HELP dispatchd_alloc_global_free_list_max Cap on the global free list; 0 means unbounded.
# TYPE dispatchd_alloc_global_free_list_max gauge
dispatchd_alloc_global_free_list_max{type="collector-widget"} %d
`, cfg.Batch, cfg.LocalMax, cfg.GlobalMax))

	require.NoError(t, testutil.CollectAndCompare(collector, configExpected,
		"dispatchd_alloc_transfer_batch_size",
		"dispatchd_alloc_local_free_list_max",
		"dispatchd_alloc_global_free_list_max",
	))
}

func TestCollectorEmptyRegistryHasNoSeries(t *testing.T) {
	collector := NewCollector(&alloc.Registry{})
	assert.Equal(t, 0, testutil.CollectAndCount(collector))
}
