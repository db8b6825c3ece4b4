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

package containermanager_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tech-jum/primus/internal/fake"
	"github.com/tech-jum/primus/pkg/containermanager"
	"github.com/tech-jum/primus/pkg/containermanager/resource"
)

// panicOnAllocateRMClient panics on its first Allocate call, to exercise the
// control loop's panic-recovery path.
type panicOnAllocateRMClient struct {
	mu    sync.Mutex
	calls int
}

func (p *panicOnAllocateRMClient) Register(ctx context.Context, host string, port int, trackingURL string) (containermanager.RegisterResponse, error) {
	return containermanager.RegisterResponse{}, nil
}

func (p *panicOnAllocateRMClient) Allocate(ctx context.Context, progress float64) (containermanager.AllocateResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	panic("simulated tick panic")
}

func (p *panicOnAllocateRMClient) ReleaseAssigned(ctx context.Context, id resource.ContainerId) {}

func (p *panicOnAllocateRMClient) UpdateBlacklist(ctx context.Context, additions, removals []string) error {
	return nil
}

func (p *panicOnAllocateRMClient) RequestContainerUpdate(ctx context.Context, c resource.Container, version uint64, updateType resource.UpdateType, target resource.Resource, execType resource.ExecutionType) error {
	return nil
}

func (p *panicOnAllocateRMClient) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestStartRegistersAndBuildsTrackingURL(t *testing.T) {
	rm := &fake.RMClient{}
	em := fake.NewExecutorManager()
	em.AllCompleted = false
	m := containermanager.New(containermanager.Config{
		ApplicationID:    "app1",
		TrackingURLBase:  "http://rm.example:8088/proxy",
		RMClient:         rm,
		ExecutorManager:  em,
		AllocateInterval: time.Hour,
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Stop()

	if !strings.HasPrefix(m.TrackingURL(), "http://rm.example:8088/proxy/appmaster/app1/") {
		t.Fatalf("unexpected tracking URL: %q", m.TrackingURL())
	}
}

func TestStartIsIdempotent(t *testing.T) {
	rm := &fake.RMClient{}
	m := containermanager.New(containermanager.Config{
		ApplicationID:    "app1",
		RMClient:         rm,
		ExecutorManager:  fake.NewExecutorManager(),
		AllocateInterval: time.Hour,
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error on first Start: %v", err)
	}
	url := m.TrackingURL()
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error on second Start: %v", err)
	}
	if m.TrackingURL() != url {
		t.Fatalf("expected a second Start to be a no-op, tracking URL changed")
	}
	m.Stop()
}

func TestStartPropagatesRegisterError(t *testing.T) {
	rm := &fake.RMClient{RegisterErr: errors.New("rm unavailable")}
	m := containermanager.New(containermanager.Config{
		ApplicationID:   "app1",
		RMClient:        rm,
		ExecutorManager: fake.NewExecutorManager(),
	})

	if err := m.Start(context.Background()); err == nil {
		t.Fatalf("expected Start to surface a registration error")
	}
}

func TestStopIsIdempotentAndSafeWithoutStart(t *testing.T) {
	m := containermanager.New(containermanager.Config{ApplicationID: "app1"})
	m.Stop()
	m.Stop()
	if !m.IsStopped() {
		t.Fatalf("expected IsStopped to be true after Stop")
	}
}

func TestRunTerminatesOnAllSuccess(t *testing.T) {
	rm := &fake.RMClient{}
	em := fake.NewExecutorManager()
	em.AllSuccess = true
	m := containermanager.New(containermanager.Config{
		ApplicationID:    "app1",
		RMClient:         rm,
		ExecutorManager:  em,
		AllocateInterval: time.Hour,
	})

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error from Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not terminate once all executors succeeded")
	}
}

func TestRunAbortsOnPanicAndDoesNotKeepTicking(t *testing.T) {
	rm := &panicOnAllocateRMClient{}

	var exitMu sync.Mutex
	var exitCalls int
	var lastCode containermanager.ExitCode

	m := containermanager.New(containermanager.Config{
		ApplicationID:    "app1",
		RMClient:         rm,
		ExecutorManager:  fake.NewExecutorManager(),
		AllocateInterval: time.Millisecond,
		Exit: func(ctx context.Context, code containermanager.ExitCode, diagnostic string) {
			exitMu.Lock()
			exitCalls++
			lastCode = code
			exitMu.Unlock()
		},
	})

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected Run to return a non-nil error after a tick panic")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not terminate after a tick panicked; the control loop kept ticking")
	}

	// Give any errant extra tick a chance to run before asserting the count,
	// since a bug here manifests as the loop continuing past the panic.
	time.Sleep(20 * time.Millisecond)

	if got := rm.callCount(); got != 1 {
		t.Fatalf("expected exactly one Allocate call before the panic aborted the loop, got %d", got)
	}

	exitMu.Lock()
	defer exitMu.Unlock()
	if exitCalls != 1 {
		t.Fatalf("expected Exit to be called exactly once, got %d", exitCalls)
	}
	if lastCode != containermanager.ExitAbort {
		t.Fatalf("expected ExitAbort, got %v", lastCode)
	}
}

func TestRunRespectsContextCancellation(t *testing.T) {
	rm := &fake.RMClient{}
	m := containermanager.New(containermanager.Config{
		ApplicationID:    "app1",
		RMClient:         rm,
		ExecutorManager:  fake.NewExecutorManager(),
		AllocateInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error from a canceled Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not respect context cancellation")
	}
}
