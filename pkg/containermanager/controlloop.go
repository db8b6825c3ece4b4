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
	"time"

	"github.com/awslabs/operatorpkg/serrors"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/tech-jum/primus/pkg/containermanager/resource"
	"github.com/tech-jum/primus/pkg/containermanager/resourceupdate"
	"github.com/tech-jum/primus/pkg/metrics"
)

// ExitCode is the diagnostic exit code published when the control loop
// terminates, whether by success or by abort.
type ExitCode int

const (
	// ExitContainerComplete is published on the finish path, once every
	// executor has completed successfully.
	ExitContainerComplete ExitCode = 0
	// ExitAbort is published whenever any tick step returns an error.
	ExitAbort ExitCode = 1
)

// tick performs one heartbeat's worth of work, in the fixed order the spec
// requires: progress probe, blacklist reconcile, heartbeat, release
// dispatch, allocation handling, completion handling, resource-update
// handling, soliciting more containers, then terminal-state checks. Any
// step returning an error aborts the tick; the caller converts that into
// the application's abort path.
func (m *Manager) tick(ctx context.Context) (finished bool, err error) {
	logger := log.FromContext(ctx)

	progress := m.readProgress()

	if err := m.reconcileBlacklist(ctx); err != nil {
		return false, serrors.Wrap(fmt.Errorf("updating blacklist: %w", err), "application-id", m.cfg.ApplicationID)
	}

	start := time.Now()
	resp, err := m.cfg.RMClient.Allocate(ctx, progress)
	metrics.HeartbeatDuration.WithLabelValues(m.cfg.ApplicationID).Observe(time.Since(start).Seconds())
	if err != nil {
		return false, serrors.Wrap(fmt.Errorf("allocate heartbeat: %w", err), "application-id", m.cfg.ApplicationID)
	}

	m.dispatchReleases(ctx)

	if m.cfg.Policy != nil {
		if err := m.cfg.Policy.HandleAllocation(ctx, resp); err != nil {
			return false, serrors.Wrap(fmt.Errorf("handling allocation: %w", err), "application-id", m.cfg.ApplicationID)
		}
	}

	m.handleCompletions(ctx, resp.Completed)

	if m.cfg.EnableUpdateResource {
		if err := m.handleResourceUpdates(ctx, resp.Updated); err != nil {
			return false, serrors.Wrap(fmt.Errorf("handling resource updates: %w", err), "application-id", m.cfg.ApplicationID)
		}
	}

	if !m.shuttingDown.Load() && m.cfg.Policy != nil {
		if err := m.cfg.Policy.AskForContainers(ctx); err != nil {
			return false, serrors.Wrap(fmt.Errorf("soliciting containers: %w", err), "application-id", m.cfg.ApplicationID)
		}
	}

	metrics.ControlLoopTicks.WithLabelValues(m.cfg.ApplicationID).Inc()

	if m.cfg.ExecutorManager != nil {
		if m.cfg.ExecutorManager.IsAllSuccess() {
			logger.Info("all executors completed successfully, finishing")
			return true, nil
		}
		if m.cfg.ExecutorManager.IsAllCompleted() {
			return false, serrors.Wrap(fmt.Errorf("all executors completed but not success"), "application-id", m.cfg.ApplicationID)
		}
	}

	return false, nil
}

func (m *Manager) readProgress() float64 {
	if m.cfg.ProgressSource == nil {
		return 0
	}
	return m.cfg.ProgressSource.Progress()
}

// reconcileBlacklist performs step 2: compute the delta against the
// tracker's current view, log it if non-empty, push it to the RM, then
// advance the remembered set so the next tick diffs from here.
func (m *Manager) reconcileBlacklist(ctx context.Context) error {
	var latest []string
	if m.cfg.BlacklistTracker != nil {
		if nodes, ok := m.cfg.BlacklistTracker.NodeBlacklist(); ok {
			latest = nodes
		}
	}

	delta := m.blacklistRc.Reconcile(latest)
	if !delta.Empty() {
		log.FromContext(ctx).WithValues(
			"additions", delta.Additions,
			"removals", delta.Removals,
		).Info("blacklist changed")
	}
	if err := m.cfg.RMClient.UpdateBlacklist(ctx, delta.Additions, delta.Removals); err != nil {
		return err
	}
	m.blacklistRc.Commit(latest)
	return nil
}

// dispatchReleases performs step 4: drain every container queued for
// release since the previous tick and ask the RM to release each one.
func (m *Manager) dispatchReleases(ctx context.Context) {
	for _, id := range m.releaseQ.DrainAll() {
		m.cfg.RMClient.ReleaseAssigned(ctx, id)
	}
}

// handleCompletions performs step 6: for every completed container
// reported by the heartbeat, remove it from the registry and run the
// shared release path. A completion for a container no longer in the
// registry (it was already evicted by a racing EXECUTOR_EXPIRED) is logged
// as a warning and otherwise ignored, per §7's "missing container on
// completion" error kind.
func (m *Manager) handleCompletions(ctx context.Context, completed []resource.ContainerStatus) {
	logger := log.FromContext(ctx)
	for _, status := range completed {
		c, ok := m.registry.Get(status.ID)
		if !ok {
			logger.WithValues("container-id", status.ID.String()).Info("completion for unknown container, ignoring")
			continue
		}
		m.onContainerReleased(ctx, c, status.ExitStatus, status.Diagnostics)
	}
}

// handleResourceUpdates performs step 7: apply the RM's reported updates to
// the registry, then for every still-running container compute the target
// resource from RoleCatalog and the classifier's verdict, issuing a resize
// request for anything other than NONE.
func (m *Manager) handleResourceUpdates(ctx context.Context, updated []resource.UpdatedContainer) error {
	logger := log.FromContext(ctx)

	for _, u := range updated {
		if _, ok := m.registry.Get(u.Container.ID); ok {
			m.registry.Insert(u.Container)
			logger.WithValues(
				"container-id", u.Container.ID.String(),
				"update-type", u.UpdateType,
			).Info("container resource updated")
			if m.cfg.ExecutorManager != nil {
				m.cfg.ExecutorManager.Handle(ContainerUpdated, u.Container, 0, string(u.UpdateType))
			}
		}
	}

	if m.cfg.RoleCatalog == nil {
		return nil
	}

	for _, c := range m.registry.SnapshotAll() {
		role, ok := m.cfg.RoleCatalog.RoleByPriority(c.Priority)
		if !ok {
			continue
		}
		verdict := resourceupdate.Classify(c.Resource, role.Resource)
		if verdict == resourceupdate.None {
			continue
		}

		var updateType resource.UpdateType
		switch verdict {
		case resourceupdate.Increase:
			updateType = resource.UpdateTypeIncrease
		case resourceupdate.Decrease:
			updateType = resource.UpdateTypeDecrease
		}

		target := role.Resource.RoundMemoryMiB()
		if err := m.cfg.RMClient.RequestContainerUpdate(ctx, c, c.Version, updateType, target, resource.ExecutionTypeGuaranteed); err != nil {
			return err
		}
	}
	return nil
}
