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

package fake

import (
	"sync"

	"github.com/tech-jum/primus/pkg/containermanager"
	"github.com/tech-jum/primus/pkg/containermanager/resource"
)

// ExecutorHandle is the in-memory ExecutorHandle double.
type ExecutorHandle struct {
	ID         string
	Code       int32
	Message    string
	ContainerV resource.Container
}

func (h *ExecutorHandle) ExecutorID() string            { return h.ID }
func (h *ExecutorHandle) ExitCode() int32               { return h.Code }
func (h *ExecutorHandle) ExitMessage() string           { return h.Message }
func (h *ExecutorHandle) Container() resource.Container { return h.ContainerV }

// ReleasedCall records one Handle(CONTAINER_RELEASED, ...) invocation.
type ReleasedCall struct {
	Container   resource.Container
	ExitCode    int32
	Diagnostics string
}

// SignalCall records one Signal invocation.
type SignalCall struct {
	ExecutorID string
	Signal     containermanager.KillSignal
}

// ExecutorManager is an in-memory ExecutorManager double, keyed by
// container id string.
type ExecutorManager struct {
	mu sync.Mutex

	Handles map[string]*ExecutorHandle

	AllSuccess   bool
	AllCompleted bool

	Released []ReleasedCall
	Signaled []SignalCall
}

// NewExecutorManager returns an ExecutorManager with an empty handle table.
func NewExecutorManager() *ExecutorManager {
	return &ExecutorManager{Handles: map[string]*ExecutorHandle{}}
}

func (m *ExecutorManager) GetExecutor(containerIDString string) (resource.ExecutorHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.Handles[containerIDString]
	if !ok {
		return nil, false
	}
	return h, true
}

func (m *ExecutorManager) Handle(eventType containermanager.ExecutorEventType, c resource.Container, exitCode int32, diagnostics string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if eventType == containermanager.ContainerReleased {
		m.Released = append(m.Released, ReleasedCall{Container: c, ExitCode: exitCode, Diagnostics: diagnostics})
	}
}

func (m *ExecutorManager) Signal(executorID string, signal containermanager.KillSignal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Signaled = append(m.Signaled, SignalCall{ExecutorID: executorID, Signal: signal})
}

func (m *ExecutorManager) IsAllSuccess() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AllSuccess
}

func (m *ExecutorManager) IsAllCompleted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AllCompleted
}
