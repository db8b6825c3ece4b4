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

// Package resource holds the immutable value types the container manager
// negotiates with the resource manager: container identity, priority,
// resource quantities, and the snapshots built from them.
package resource

import "fmt"

// ContainerId is an opaque, totally ordered identifier assigned by the
// resource manager. The underlying string is whatever the RM hands back;
// ordering is lexicographic, which is sufficient for deterministic
// iteration and is not assumed to carry any other meaning.
type ContainerId string

// Less gives ContainerId a total order for deterministic snapshot iteration.
func (c ContainerId) Less(other ContainerId) bool {
	return c < other
}

func (c ContainerId) String() string {
	return string(c)
}

// Priority is the scheduling band a container belongs to. Priorities are
// monotonic over an application's lifetime: RoleCatalog only ever adds new
// bands, never retires one.
type Priority int32

// Resource is a two-dimensional resource quantity. The zero value means
// unknown/unset and is never a valid target for a running container.
type Resource struct {
	MemoryMiB uint64
	VCores    uint32
}

// IsZero reports whether r is the unset/unknown resource.
func (r Resource) IsZero() bool {
	return r.MemoryMiB == 0 && r.VCores == 0
}

// Equal is component-wise equality.
func (r Resource) Equal(other Resource) bool {
	return r.MemoryMiB == other.MemoryMiB && r.VCores == other.VCores
}

// FitsIn reports whether every component of r is <= the matching component
// of other.
func (r Resource) FitsIn(other Resource) bool {
	return r.MemoryMiB <= other.MemoryMiB && r.VCores <= other.VCores
}

func (r Resource) String() string {
	return fmt.Sprintf("mem=%dMiB,vcores=%d", r.MemoryMiB, r.VCores)
}

// RoundMemoryMiB rounds up r's memory to the nearest 1024 MiB (the RM's
// allocation granularity) and returns the rounded resource. VCores are
// untouched.
func (r Resource) RoundMemoryMiB() Resource {
	const giB = 1024
	rounded := r
	if rem := rounded.MemoryMiB % giB; rem != 0 {
		rounded.MemoryMiB += giB - rem
	}
	return rounded
}

// Container is an immutable snapshot of a granted allocation. Updates (a
// resized container, a re-admitted id) produce a new Container value rather
// than mutating an existing one; Version lets callers detect which
// snapshot an RM-side update request was issued against.
type Container struct {
	ID              ContainerId
	Priority        Priority
	Resource        Resource
	NodeHTTPAddress string
	Version         uint64
}

// ContainerStatus reports a terminal outcome for a container, as delivered
// by the resource manager's heartbeat response.
type ContainerStatus struct {
	ID          ContainerId
	ExitStatus  int32
	Diagnostics string
}

// ExecutorHandle is the subset of the executor manager's per-container
// handle the ACM needs to read; the executor manager owns the concrete type.
type ExecutorHandle interface {
	ExecutorID() string
	ExitCode() int32
	ExitMessage() string
	Container() Container
}

// UpdateType classifies a resource change request sent to the RM, mirroring
// the verdicts produced by the resourceupdate classifier.
type UpdateType string

const (
	UpdateTypeIncrease UpdateType = "INCREASE"
	UpdateTypeDecrease UpdateType = "DECREASE"
)

// ExecutionType is the execution guarantee requested alongside a resource
// update; the ACM only ever asks for GUARANTEED per spec, but the type
// exists so the RM contract is not hard-coded to one literal.
type ExecutionType string

const ExecutionTypeGuaranteed ExecutionType = "GUARANTEED"

// UpdatedContainer is one entry of an allocate response's updated list: the
// RM's view of a container whose resource changed, and which kind of change
// it was.
type UpdatedContainer struct {
	Container  Container
	UpdateType UpdateType
}
