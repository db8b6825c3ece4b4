/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package registry holds the thread-safe bookkeeping of running containers,
// indexed both by id and by priority band.
package registry

import (
	"sort"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/tech-jum/primus/pkg/containermanager/resource"
)

// Registry indexes live containers by id and by priority band. It is
// written and read via SnapshotAll from two contexts (the event handler and
// the control loop); all operations go through a single RWMutex (writers
// exclusive, readers shared), which is cheap enough at the container counts
// this application master deals with and keeps the priority-index
// invariant trivially atomic.
type Registry struct {
	mu         sync.RWMutex
	byID       map[resource.ContainerId]resource.Container
	byPriority map[resource.Priority]sets.Set[resource.ContainerId]
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		byID:       make(map[resource.ContainerId]resource.Container),
		byPriority: make(map[resource.Priority]sets.Set[resource.ContainerId]),
	}
}

// EnsurePriority creates an empty band for p if one does not already exist.
// Bands are never removed once created: priorities are monotonic over an
// application's lifetime.
func (r *Registry) EnsurePriority(p resource.Priority) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensurePriorityLocked(p)
}

func (r *Registry) ensurePriorityLocked(p resource.Priority) {
	if _, ok := r.byPriority[p]; !ok {
		r.byPriority[p] = sets.New[resource.ContainerId]()
	}
}

// Insert is idempotent: a second insert with the same id overwrites the
// snapshot and, if the priority changed, moves the id to the new band
// without ever leaving it registered in both.
func (r *Registry) Insert(c resource.Container) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byID[c.ID]; ok && old.Priority != c.Priority {
		if band, ok := r.byPriority[old.Priority]; ok {
			band.Delete(c.ID)
		}
	}
	r.ensurePriorityLocked(c.Priority)
	r.byPriority[c.Priority].Insert(c.ID)
	r.byID[c.ID] = c
}

// RemoveByID atomically removes a container from byID and its priority
// band. It returns the removed snapshot and whether it was present; absence
// is not an error, since a container may already have been evicted by a
// racing completion or EXECUTOR_EXPIRED event.
func (r *Registry) RemoveByID(id resource.ContainerId) (resource.Container, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return resource.Container{}, false
	}
	delete(r.byID, id)
	if band, ok := r.byPriority[c.Priority]; ok {
		band.Delete(id)
	}
	return c, true
}

// Get returns the current snapshot for id, if any.
func (r *Registry) Get(id resource.ContainerId) (resource.Container, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

// SnapshotAll returns a stable, deterministically ordered copy of every
// live container, safe to iterate while the registry continues to be
// mutated by other goroutines. Ordering is by ContainerId so repeated runs
// against identical RM responses produce identical log output.
func (r *Registry) SnapshotAll() []resource.Container {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]resource.Container, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	return out
}

// Len returns the number of live containers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// PriorityBand returns the ids currently in priority p's band, sorted for
// deterministic iteration. The returned slice is a snapshot copy.
func (r *Registry) PriorityBand(p resource.Priority) []resource.ContainerId {
	r.mu.RLock()
	defer r.mu.RUnlock()

	band, ok := r.byPriority[p]
	if !ok {
		return nil
	}
	ids := band.UnsortedList()
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}
