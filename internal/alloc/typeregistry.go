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

import "sync"

// Registry collects TypeStats across heterogeneous TypeDescriptor[T]
// instances for a single management-agent snapshot. Each TypeDescriptor
// is added once via Register (typically from an init func of the package
// that called NewType), and the allocagent package walks the registry to build its
// Prometheus collector without needing to know the concrete T of every
// pooled type.
type Registry struct {
	mu    sync.Mutex
	types []TypeStatsProvider
}

// TypeStatsProvider is implemented by every *TypeDescriptor[T].
type TypeStatsProvider interface {
	Name() string
	TotalSize() int
	Stats() Stats
	Config() Config
}

// Default is the process-wide registry used by NewType's callers that want
// their type discoverable by the allocagent collector.
var Default = &Registry{}

// Register adds a type to the registry. Safe to call from an init func.
func (r *Registry) Register(t TypeStatsProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, t)
}

// TypeStats is a named snapshot returned by Registry.Snapshot.
type TypeStats struct {
	Name      string
	TotalSize int
	Stats     Stats
	Config    Config
}

// Snapshot returns the current Stats for every registered type.
func (r *Registry) Snapshot() []TypeStats {
	r.mu.Lock()
	types := append([]TypeStatsProvider(nil), r.types...)
	r.mu.Unlock()

	out := make([]TypeStats, len(types))
	for i, t := range types {
		out[i] = TypeStats{Name: t.Name(), TotalSize: t.TotalSize(), Stats: t.Stats(), Config: t.Config()}
	}
	return out
}
