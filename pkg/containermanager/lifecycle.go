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

	"github.com/google/uuid"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// afterAllocateInterval is a package variable so tests can substitute a
// faster timer without waiting out a real AllocateInterval.
var afterAllocateInterval = func(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Exit is called exactly once when the control loop ends on the abort or
// finish path, carrying the exit code and diagnostic those paths publish.
// It is not called when the loop returns because ctx was canceled or Stop
// was called. The
// default implementation only logs: the process-exit mechanism itself (an
// AM-level "publish FailAttempt/ApplicationSuccess" call) is an external
// collaborator out of this component's scope, so callers that need the
// process to actually exit should set Config.Exit.
type Exit func(ctx context.Context, code ExitCode, diagnostic string)

func defaultExit(ctx context.Context, code ExitCode, diagnostic string) {
	logger := log.FromContext(ctx)
	if code == ExitAbort {
		logger.Error(fmt.Errorf("%s", diagnostic), "application master aborting")
		return
	}
	logger.Info("application master finished successfully", "diagnostic", diagnostic)
}

// register performs the one-shot startup call to the resource manager and
// builds the tracking URL this process is reachable at. It does not retry:
// per §7, the RM client is expected to encapsulate its own retry policy,
// and a registration failure is fatal to the process exactly like any
// other RM call failure.
func (m *Manager) register(ctx context.Context) error {
	m.sessionToken = uuid.New()
	m.trackingURL = fmt.Sprintf("%s/appmaster/%s/%s", m.cfg.TrackingURLBase, m.cfg.ApplicationID, m.sessionToken)

	if m.cfg.RMClient == nil {
		return fmt.Errorf("containermanager: no RMClient configured")
	}
	if _, err := m.cfg.RMClient.Register(ctx, m.cfg.AMHost, m.cfg.AMPort, m.trackingURL); err != nil {
		return fmt.Errorf("registering with resource manager: %w", err)
	}

	log.FromContext(ctx).WithValues(
		"application-id", m.cfg.ApplicationID,
		"tracking-url", m.trackingURL,
		"session-token", m.sessionToken.String(),
	).Info("registered with resource manager")
	return nil
}

// TrackingURL returns the URL built at registration, or the empty string
// before Start has run.
func (m *Manager) TrackingURL() string { return m.trackingURL }

// Start registers with the resource manager and launches the control loop
// as a background goroutine that does not block process termination; it is
// the daemon-equivalent task the spec's LifecycleController.start()
// describes. Start is idempotent: calling it more than once has no effect
// beyond the first call.
func (m *Manager) Start(ctx context.Context) error {
	var registerErr error
	m.startOnce.Do(func() {
		if registerErr = m.register(ctx); registerErr != nil {
			return
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.runLoop(ctx)
		}()
	})
	return registerErr
}

// Stop sets the stopped flag, wakes the control loop if it is sleeping,
// and joins the background goroutine launched by Start. It is idempotent
// and safe to call even if Start was never called. Errors during join are
// not possible with this implementation's WaitGroup-based join, but the
// method is structured so a future bounded-wait join can swallow a timeout
// the same way the spec's stop() does.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.stopped.Store(true)
		close(m.doneCh)
	})
	m.wg.Wait()
}

// Run executes the control loop synchronously until ctx is canceled, stop
// is requested, or a tick terminates the application. It satisfies
// controller-runtime's manager.Runnable interface, so a Manager can be
// registered directly with a controller-runtime manager instead of driven
// through Start/Stop.
func (m *Manager) Run(ctx context.Context) error {
	return m.runLoopErr(ctx)
}

func (m *Manager) runLoop(ctx context.Context) {
	_ = m.runLoopErr(ctx)
}

// runLoopErr is the ten-step-per-tick loop body: after every tick it sleeps
// for AllocateInterval. A ctx cancellation or a Stop (the done channel)
// during that sleep ends the loop at once with a nil error; the stopped
// flag is also checked at the head of every iteration.
func (m *Manager) runLoopErr(ctx context.Context) error {
	exit := m.cfg.Exit
	if exit == nil {
		exit = defaultExit
	}

	for {
		if m.stopped.Load() {
			return nil
		}

		finished, err := func() (finished bool, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("control loop panic: %v", r)
				}
			}()
			return m.tick(ctx)
		}()

		if err != nil {
			exit(ctx, ExitAbort, err.Error())
			return err
		}
		if finished {
			exit(ctx, ExitContainerComplete, "all executors completed successfully")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-m.doneCh:
			return nil
		case <-afterAllocateInterval(m.cfg.AllocateInterval):
		}
	}
}
