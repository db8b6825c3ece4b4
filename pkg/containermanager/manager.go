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

// Package containermanager is the application container manager (ACM): the
// control loop, data structures, and event handling that translate an
// application's role-level demand for compute containers into a steady
// heartbeat relationship with a YARN-like resource manager.
package containermanager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/tech-jum/primus/pkg/containermanager/blacklist"
	"github.com/tech-jum/primus/pkg/containermanager/registry"
	"github.com/tech-jum/primus/pkg/containermanager/releasequeue"
	"github.com/tech-jum/primus/pkg/containermanager/resource"
)

// Config is everything Manager needs at construction time. Every field
// named here is an external collaborator this package consumes by
// contract; none are implemented in this package.
type Config struct {
	ApplicationID string

	AMHost          string
	AMPort          int
	TrackingURLBase string

	RMClient         RMClient
	ExecutorManager  ExecutorManager
	ScheduleChain    ScheduleChain
	RoleCatalog      RoleCatalog
	BlacklistTracker BlacklistTracker // may be nil: an absent tracker yields an empty blacklist
	ProgressSource   ProgressSource
	Policy           AllocationPolicy

	AllocateInterval     time.Duration // defaults to 10s if zero
	EnableUpdateResource bool

	ReleaseQueueCapacity int // defaults to 4096 if zero

	// Exit is called once when the control loop ends on the abort or finish
	// path (not on ctx cancellation or Stop). Defaults to a
	// logging-only implementation if nil; see the Exit type for why the
	// process-exit mechanism itself is left to the caller.
	Exit Exit
}

// Manager owns the shared mutable state of the ACM: the container registry,
// the release queue, the blacklist reconciler's remembered set, and the two
// lifecycle flags. It is written from at most two contexts: the event
// handler (external producer goroutines) and the control loop (one
// dedicated goroutine). No other writer is permitted.
type Manager struct {
	cfg Config

	registry    *registry.Registry
	releaseQ    *releasequeue.Queue
	blacklistRc *blacklist.Reconciler

	stopped      atomic.Bool
	shuttingDown atomic.Bool

	// killSignaled remembers which containers have already received an
	// ExecutorKill/ExecutorKillForcibly signal, so a repeated shutdown event
	// of the same severity does not re-signal an executor that already
	// received one (see SPEC_FULL.md §11.3).
	killMu       sync.Mutex
	killSignaled sets.Set[resource.ContainerId]

	startOnce sync.Once
	stopOnce  sync.Once
	doneCh    chan struct{}
	wg        sync.WaitGroup

	sessionToken uuid.UUID
	trackingURL  string
}

// New builds a Manager from cfg. It does not contact the resource manager;
// call Start to register and launch the control loop.
func New(cfg Config) *Manager {
	if cfg.AllocateInterval <= 0 {
		cfg.AllocateInterval = 10 * time.Second
	}
	if cfg.ReleaseQueueCapacity <= 0 {
		cfg.ReleaseQueueCapacity = 4096
	}
	return &Manager{
		cfg:          cfg,
		registry:     registry.New(),
		releaseQ:     releasequeue.New(cfg.ReleaseQueueCapacity),
		blacklistRc:  blacklist.New(),
		killSignaled: sets.New[resource.ContainerId](),
		doneCh:       make(chan struct{}),
	}
}

// Registry exposes the container registry for read-only inspection by
// tests and the embedded tracking endpoint.
func (m *Manager) Registry() *registry.Registry { return m.registry }

// ReleaseQueue exposes the release queue, primarily for tests.
func (m *Manager) ReleaseQueue() *releasequeue.Queue { return m.releaseQ }

// IsShuttingDown reports the current value of the shuttingDown flag.
func (m *Manager) IsShuttingDown() bool { return m.shuttingDown.Load() }

// IsStopped reports the current value of the stopped flag.
func (m *Manager) IsStopped() bool { return m.stopped.Load() }

func (m *Manager) markKillSignaled(id resource.ContainerId) (alreadySignaled bool) {
	m.killMu.Lock()
	defer m.killMu.Unlock()
	if m.killSignaled.Has(id) {
		return true
	}
	m.killSignaled.Insert(id)
	return false
}
