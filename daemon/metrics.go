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

package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/dispatchd/common"
)

var (
	uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "uptime",
			Help:      "Uptime in seconds",
		},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "git_hash", "build_time"},
	)

	routerTableSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "router_table_size",
			Help:      "Number of distinct router addresses currently bound to a link",
		},
	)

	handledDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "handled_deliveries_total",
			Help:      "Deliveries fully received and checked",
		},
	)

	routedDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "routed_deliveries_total",
			Help:      "Deliveries whose to field resolved to at least one bound link",
		},
	)

	unroutableDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "unroutable_deliveries_total",
			Help:      "Deliveries whose to field had no bound link",
		},
	)
)
