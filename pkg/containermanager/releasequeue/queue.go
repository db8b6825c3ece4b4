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

// Package releasequeue is a bounded, many-producer single-consumer FIFO of
// containers pending release to the resource manager.
package releasequeue

import (
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/tech-jum/primus/pkg/containermanager/resource"
)

// dedupeTTL bounds how long a recently-enqueued id is remembered, covering
// the window in which a completion and an EXECUTOR_EXPIRED for the same
// container can race each other across at most a couple of heartbeats.
const dedupeTTL = 2 * time.Minute

// Queue is a bounded FIFO, safe for concurrent Enqueue from many producer
// goroutines (the event handler, potentially several callers) and
// consumption from a single consumer goroutine (the control loop).
type Queue struct {
	ch     chan resource.ContainerId
	recent *cache.Cache
}

// New returns a Queue that can hold up to capacity pending releases before
// Enqueue blocks.
func New(capacity int) *Queue {
	return &Queue{
		ch:     make(chan resource.ContainerId, capacity),
		recent: cache.New(dedupeTTL, dedupeTTL/2),
	}
}

// Enqueue posts id for release. A duplicate enqueue of an id already
// enqueued within the dedupe window (whether or not it has been drained
// since) is a silent no-op, so a racing EXECUTOR_EXPIRED following an
// already-queued release does not double the RM's releaseAssigned calls.
func (q *Queue) Enqueue(id resource.ContainerId) {
	if err := q.recent.Add(string(id), struct{}{}, cache.DefaultExpiration); err != nil {
		return
	}
	q.ch <- id
}

// DrainAll removes and returns every container currently pending, without
// blocking for more to arrive. The control loop calls it once per heartbeat
// tick, right after the allocate call and before allocation handling.
func (q *Queue) DrainAll() []resource.ContainerId {
	var out []resource.ContainerId
	for {
		select {
		case id := <-q.ch:
			out = append(out, id)
		default:
			return out
		}
	}
}

// Len reports the number of ids currently buffered, for tests and metrics.
func (q *Queue) Len() int {
	return len(q.ch)
}
