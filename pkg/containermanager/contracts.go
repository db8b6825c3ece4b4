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

package containermanager

import (
	"context"

	"github.com/tech-jum/primus/pkg/containermanager/resource"
)

// RegisterResponse is returned by a one-shot RMClient.Register call at
// startup.
type RegisterResponse struct {
	MaxCapability resource.Resource
}

// AllocateResponse is the result of one heartbeat round.
type AllocateResponse struct {
	Allocated []resource.Container
	Completed []resource.ContainerStatus
	Updated   []resource.UpdatedContainer
}

// RMClient is the resource-manager client this component consumes. It owns
// its own wire format, retry policy, and transport; the ACM treats every
// method as a single blocking call per tick.
type RMClient interface {
	Register(ctx context.Context, host string, port int, trackingURL string) (RegisterResponse, error)
	Allocate(ctx context.Context, progress float64) (AllocateResponse, error)
	ReleaseAssigned(ctx context.Context, id resource.ContainerId)
	UpdateBlacklist(ctx context.Context, additions, removals []string) error
	RequestContainerUpdate(ctx context.Context, c resource.Container, version uint64, updateType resource.UpdateType, target resource.Resource, execType resource.ExecutionType) error
}

// ExecutorEventType discriminates the notifications the ACM pushes into the
// executor manager.
type ExecutorEventType string

const (
	ContainerReleased ExecutorEventType = "CONTAINER_RELEASED"
	ContainerUpdated  ExecutorEventType = "CONTAINER_UPDATED"
)

// ExecutorManager is the subset of the executor manager contract the ACM
// calls into.
type ExecutorManager interface {
	GetExecutor(containerIDString string) (resource.ExecutorHandle, bool)
	Handle(eventType ExecutorEventType, c resource.Container, exitCode int32, diagnostics string)
	// Signal delivers a kill signal to the executor bound to executorID, as
	// part of GRACEFUL_SHUTDOWN/FORCIBLY_SHUTDOWN handling.
	Signal(executorID string, signal KillSignal)
	IsAllSuccess() bool
	IsAllCompleted() bool
}

// ScheduleContext carries everything the scheduling-decision chain needs to
// process a released container. ErrMsg is mutable: a chain link may revise
// the diagnostic before it reaches the executor manager.
type ScheduleContext struct {
	Container resource.Container
	ExitCode  int32
	ErrMsg    string
	Blacklist BlacklistTracker
}

// ScheduleChain is the pluggable scheduling-decision chain consulted when a
// container is released.
type ScheduleChain interface {
	ProcessReleasedContainer(ctx context.Context, sc *ScheduleContext)
}

// RoleInfo is the resource spec published for one priority band.
type RoleInfo struct {
	Resource resource.Resource
}

// RoleCatalog is the external catalog of roles and their priorities.
type RoleCatalog interface {
	Priorities() []resource.Priority
	RoleByPriority(p resource.Priority) (RoleInfo, bool)
}

// BlacklistTracker is the optional source of the current node blacklist. A
// nil BlacklistTracker is a valid, absent dependency: the reconciler treats
// it as an empty set.
type BlacklistTracker interface {
	NodeBlacklist() ([]string, bool)
}

// KillSignal discriminates a graceful from a forcible executor kill.
type KillSignal string

const (
	ExecutorKill         KillSignal = "ExecutorKill"
	ExecutorKillForcibly KillSignal = "ExecutorKillForcibly"
)

// AllocationPolicy is the injected capability that wires role demand to RM
// container requests. It replaces the abstract-base-class extension points
// of the source design with a plain interface; no inheritance is involved.
// Implementations must not block the control loop for more than one tick's
// worth of time.
type AllocationPolicy interface {
	// HandleAllocation admits newly allocated containers into the registry
	// and assigns them to executors.
	HandleAllocation(ctx context.Context, response AllocateResponse) error
	// AskForContainers translates outstanding role demand into RM container
	// requests. Not called while shutting down.
	AskForContainers(ctx context.Context) error
}

// ProgressSource reports the application's current progress fraction,
// consumed once per heartbeat tick.
type ProgressSource interface {
	Progress() float64
}
