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

// Package events defines the ContainerManagerEvent taxonomy external
// collaborators emit into the event handler. The types here are pure data;
// the handler that mutates shared state in response lives in the top-level
// containermanager package, since it needs access to the registry and
// release queue these events act on.
package events

import "github.com/tech-jum/primus/pkg/containermanager/resource"

// Type discriminates the five events the ACM's event handler accepts.
type Type string

const (
	RequestCreated   Type = "REQUEST_CREATED"
	RequestUpdated   Type = "REQUEST_UPDATED"
	ExecutorExpired  Type = "EXECUTOR_EXPIRED"
	GracefulShutdown Type = "GRACEFUL_SHUTDOWN"
	ForcibleShutdown Type = "FORCIBLY_SHUTDOWN"
)

// Event is the single envelope every ContainerManagerEvent is delivered as.
// Container is only populated for EXECUTOR_EXPIRED.
type Event struct {
	Type      Type
	Container resource.Container
}

// RequestCreatedEvent builds a REQUEST_CREATED event.
func RequestCreatedEvent() Event { return Event{Type: RequestCreated} }

// RequestUpdatedEvent builds a REQUEST_UPDATED event.
func RequestUpdatedEvent() Event { return Event{Type: RequestUpdated} }

// ExecutorExpiredEvent builds an EXECUTOR_EXPIRED event for c.
func ExecutorExpiredEvent(c resource.Container) Event {
	return Event{Type: ExecutorExpired, Container: c}
}

// GracefulShutdownEvent builds a GRACEFUL_SHUTDOWN event.
func GracefulShutdownEvent() Event { return Event{Type: GracefulShutdown} }

// ForcibleShutdownEvent builds a FORCIBLY_SHUTDOWN event.
func ForcibleShutdownEvent() Event { return Event{Type: ForcibleShutdown} }
