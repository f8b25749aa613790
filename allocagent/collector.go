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

// Package allocagent adapts internal/alloc's per-type statistics into
// Prometheus series, the concrete realization of the "Allocator →
// management agent" collaborator spec.md keeps external.
package allocagent

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/packetd/dispatchd/common"
	"github.com/packetd/dispatchd/internal/alloc"
)

var (
	totalAllocFromHeapDesc = prometheus.NewDesc(
		prometheus.BuildFQName(common.App, "alloc", "total_alloc_from_heap"),
		"Items ever allocated from the Go heap for this type.",
		[]string{"type"}, nil,
	)
	totalFreeToHeapDesc = prometheus.NewDesc(
		prometheus.BuildFQName(common.App, "alloc", "total_free_to_heap"),
		"Items trimmed from the global free list back to the Go heap.",
		[]string{"type"}, nil,
	)
	heldByThreadsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(common.App, "alloc", "held_by_threads"),
		"Items currently checked out to worker-local pools.",
		[]string{"type"}, nil,
	)
	batchesToThreadsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(common.App, "alloc", "batches_rebalanced_to_threads"),
		"Batches moved from the global free list to a worker pool.",
		[]string{"type"}, nil,
	)
	batchesToGlobalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(common.App, "alloc", "batches_rebalanced_to_global"),
		"Batches moved from a worker pool to the global free list.",
		[]string{"type"}, nil,
	)
	itemTotalSizeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(common.App, "alloc", "item_total_size_bytes"),
		"Nominal per-item size, including any runtime-configured extra size.",
		[]string{"type"}, nil,
	)
	transferBatchSizeDesc = prometheus.NewDesc(
		prometheus.BuildFQName(common.App, "alloc", "transfer_batch_size"),
		"Items moved between a worker pool and the global free list on each rebalance.",
		[]string{"type"}, nil,
	)
	localFreeListMaxDesc = prometheus.NewDesc(
		prometheus.BuildFQName(common.App, "alloc", "local_free_list_max"),
		"High-water mark of a worker pool's free list before it rebalances a batch back to the global list.",
		[]string{"type"}, nil,
	)
	globalFreeListMaxDesc = prometheus.NewDesc(
		prometheus.BuildFQName(common.App, "alloc", "global_free_list_max"),
		"Cap on the global free list; 0 means unbounded.",
		[]string{"type"}, nil,
	)
)

// Collector is a prometheus.Collector over a *alloc.Registry. Registered
// allocator types grow as packages are imported, so Collect walks
// Registry.Snapshot fresh on every scrape instead of maintaining
// pre-declared label combinations.
type Collector struct {
	registry *alloc.Registry
}

// NewCollector returns a Collector reading from registry.
func NewCollector(registry *alloc.Registry) *Collector {
	return &Collector{registry: registry}
}

// Register builds a Collector over registry and registers it with
// Prometheus's default registerer. Intended to be called once at daemon
// startup.
func Register(registry *alloc.Registry) error {
	return prometheus.Register(NewCollector(registry))
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- totalAllocFromHeapDesc
	ch <- totalFreeToHeapDesc
	ch <- heldByThreadsDesc
	ch <- batchesToThreadsDesc
	ch <- batchesToGlobalDesc
	ch <- itemTotalSizeDesc
	ch <- transferBatchSizeDesc
	ch <- localFreeListMaxDesc
	ch <- globalFreeListMaxDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, t := range c.registry.Snapshot() {
		ch <- prometheus.MustNewConstMetric(totalAllocFromHeapDesc, prometheus.CounterValue, float64(t.Stats.TotalAllocFromHeap), t.Name)
		ch <- prometheus.MustNewConstMetric(totalFreeToHeapDesc, prometheus.CounterValue, float64(t.Stats.TotalFreeToHeap), t.Name)
		ch <- prometheus.MustNewConstMetric(heldByThreadsDesc, prometheus.GaugeValue, float64(t.Stats.HeldByThreads), t.Name)
		ch <- prometheus.MustNewConstMetric(batchesToThreadsDesc, prometheus.CounterValue, float64(t.Stats.BatchesRebalancedToThreads), t.Name)
		ch <- prometheus.MustNewConstMetric(batchesToGlobalDesc, prometheus.CounterValue, float64(t.Stats.BatchesRebalancedToGlobal), t.Name)
		ch <- prometheus.MustNewConstMetric(itemTotalSizeDesc, prometheus.GaugeValue, float64(t.TotalSize), t.Name)
		ch <- prometheus.MustNewConstMetric(transferBatchSizeDesc, prometheus.GaugeValue, float64(t.Config.Batch), t.Name)
		ch <- prometheus.MustNewConstMetric(localFreeListMaxDesc, prometheus.GaugeValue, float64(t.Config.LocalMax), t.Name)
		ch <- prometheus.MustNewConstMetric(globalFreeListMaxDesc, prometheus.GaugeValue, float64(t.Config.GlobalMax), t.Name)
	}
}
