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
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/tech-jum/primus/pkg/containermanager/events"
	"github.com/tech-jum/primus/pkg/containermanager/resource"
	"github.com/tech-jum/primus/pkg/metrics"
)

// HandleEvent is the synchronous sink for ContainerManagerEvents. It never
// talks to the resource manager directly — only the control loop does
// that — and any unexpected error it encounters is fatal to the
// application, per the abort policy in §7 of the spec: callers must not
// swallow a non-nil return.
func (m *Manager) HandleEvent(ctx context.Context, ev events.Event) error {
	switch ev.Type {
	case events.RequestCreated, events.RequestUpdated:
		return m.handleRequestChanged(ctx)
	case events.ExecutorExpired:
		return m.handleExecutorExpired(ctx, ev.Container)
	case events.GracefulShutdown:
		return m.handleShutdown(ctx, ContainerManagerKillGraceful)
	case events.ForcibleShutdown:
		return m.handleShutdown(ctx, ContainerManagerKillForcible)
	default:
		return fmt.Errorf("containermanager: unknown event type %q", ev.Type)
	}
}

// handleRequestChanged services REQUEST_CREATED/REQUEST_UPDATED: it only
// ensures the registry has a band for every priority RoleCatalog currently
// publishes. No RM call happens here; the next heartbeat tick picks up any
// resulting demand change via AskForContainers.
func (m *Manager) handleRequestChanged(ctx context.Context) error {
	if m.cfg.RoleCatalog == nil {
		return nil
	}
	for _, p := range m.cfg.RoleCatalog.Priorities() {
		m.registry.EnsurePriority(p)
	}
	return nil
}

// handleExecutorExpired services EXECUTOR_EXPIRED: the container is queued
// for release, and if an executor handle is already known for it the
// shared release path runs immediately rather than waiting for the RM's
// heartbeat to confirm completion.
func (m *Manager) handleExecutorExpired(ctx context.Context, c resource.Container) error {
	m.releaseQ.Enqueue(c.ID)
	metrics.ExecutorExpired.WithLabelValues(m.cfg.ApplicationID).Inc()

	if m.cfg.ExecutorManager == nil {
		return nil
	}
	handle, ok := m.cfg.ExecutorManager.GetExecutor(c.ID.String())
	if !ok {
		return nil
	}
	m.onContainerReleased(ctx, c, handle.ExitCode(), handle.ExitMessage())
	return nil
}

// shutdownKind distinguishes the severity of a shutdown request.
type shutdownKind int

const (
	ContainerManagerKillGraceful shutdownKind = iota
	ContainerManagerKillForcible
)

// handleShutdown services GRACEFUL_SHUTDOWN and FORCIBLY_SHUTDOWN: it marks
// shuttingDown, then signals every live container with a known executor.
// It does not drain the registry — completions continue to flow back
// through the heartbeat. A container that already received a signal of
// the same kind is not signaled again, so a repeated event for the same
// severity is a no-op, while an escalation from graceful to forcible still
// signals: each live container is signaled at most once per kind.
func (m *Manager) handleShutdown(ctx context.Context, kind shutdownKind) error {
	m.shuttingDown.Store(true)

	if m.cfg.ExecutorManager == nil {
		return nil
	}

	signal := ExecutorKill
	if kind == ContainerManagerKillForcible {
		signal = ExecutorKillForcibly
	}

	logger := log.FromContext(ctx)
	for _, c := range m.registry.SnapshotAll() {
		if m.markKillSignaled(signalKey(c.ID, signal)) {
			continue
		}
		handle, ok := m.cfg.ExecutorManager.GetExecutor(c.ID.String())
		if !ok {
			continue
		}
		logger.WithValues("container-id", c.ID.String(), "signal", signal).Info("signaling executor for shutdown")
		m.cfg.ExecutorManager.Signal(handle.ExecutorID(), signal)
	}
	return nil
}

// signalKey distinguishes graceful from forcible signals in killSignaled so
// an escalation from graceful to forcible is still delivered once, even
// though the container id alone was already marked for the graceful kind.
func signalKey(id resource.ContainerId, signal KillSignal) resource.ContainerId {
	return resource.ContainerId(fmt.Sprintf("%s/%s", id, signal))
}

// onContainerReleased is the shared release path invoked by both the event
// handler (an EXECUTOR_EXPIRED race) and the control loop (a completion
// reported by the heartbeat). It is safe to call more than once for the
// same container: registry removal tolerates absence.
func (m *Manager) onContainerReleased(ctx context.Context, c resource.Container, exitCode int32, diagnostic string) {
	m.registry.RemoveByID(c.ID)

	sc := &ScheduleContext{
		Container: c,
		ExitCode:  exitCode,
		ErrMsg:    diagnostic,
		Blacklist: m.cfg.BlacklistTracker,
	}
	if m.cfg.ScheduleChain != nil {
		m.cfg.ScheduleChain.ProcessReleasedContainer(ctx, sc)
	}

	if m.cfg.ExecutorManager != nil {
		m.cfg.ExecutorManager.Handle(ContainerReleased, c, exitCode, sc.ErrMsg)
	}
	metrics.ReleaseContainer.WithLabelValues(m.cfg.ApplicationID).Inc()
}
