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
	"testing"

	"github.com/tech-jum/primus/internal/fake"
	"github.com/tech-jum/primus/pkg/containermanager"
	"github.com/tech-jum/primus/pkg/containermanager/events"
	"github.com/tech-jum/primus/pkg/containermanager/resource"
)

func newTestManager(t *testing.T, cfg containermanager.Config) (*containermanager.Manager, *fake.RMClient, *fake.ExecutorManager) {
	t.Helper()
	rm := &fake.RMClient{}
	em := fake.NewExecutorManager()
	cfg.RMClient = rm
	cfg.ExecutorManager = em
	m := containermanager.New(cfg)
	return m, rm, em
}

func TestHandleRequestChangedEnsuresPriorityBands(t *testing.T) {
	catalog := fake.NewRoleCatalog(map[resource.Priority]containermanager.RoleInfo{
		1: {Resource: resource.Resource{MemoryMiB: 1024, VCores: 1}},
		2: {Resource: resource.Resource{MemoryMiB: 2048, VCores: 2}},
	})
	m, _, _ := newTestManager(t, containermanager.Config{ApplicationID: "app1", RoleCatalog: catalog})

	if err := m.HandleEvent(context.Background(), events.RequestCreatedEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if band := m.Registry().PriorityBand(1); band == nil {
		t.Fatalf("expected priority band 1 to exist")
	}
	if band := m.Registry().PriorityBand(2); band == nil {
		t.Fatalf("expected priority band 2 to exist")
	}
}

func TestHandleExecutorExpiredQueuesReleaseAndRunsSharedPath(t *testing.T) {
	m, _, em := newTestManager(t, containermanager.Config{ApplicationID: "app1"})
	c := resource.Container{ID: "c1", Priority: 1, Resource: resource.Resource{MemoryMiB: 1024, VCores: 1}}
	m.Registry().Insert(c)
	em.Handles["c1"] = &fake.ExecutorHandle{ID: "exec-1", Code: 0, Message: "done", ContainerV: c}

	if err := m.HandleEvent(context.Background(), events.ExecutorExpiredEvent(c)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.ReleaseQueue().Len() != 1 {
		t.Fatalf("expected 1 queued release, got %d", m.ReleaseQueue().Len())
	}
	if _, ok := m.Registry().Get("c1"); ok {
		t.Fatalf("expected c1 to be evicted by the shared release path")
	}
	if len(em.Released) != 1 || em.Released[0].Container.ID != "c1" {
		t.Fatalf("expected one ReleasedCall for c1, got %v", em.Released)
	}
}

func TestGracefulShutdownSignalsLiveContainersOnce(t *testing.T) {
	m, _, em := newTestManager(t, containermanager.Config{ApplicationID: "app1"})
	c1 := resource.Container{ID: "c1", Priority: 1}
	c2 := resource.Container{ID: "c2", Priority: 1}
	m.Registry().Insert(c1)
	m.Registry().Insert(c2)
	em.Handles["c1"] = &fake.ExecutorHandle{ID: "exec-1"}
	em.Handles["c2"] = &fake.ExecutorHandle{ID: "exec-2"}

	if err := m.HandleEvent(context.Background(), events.GracefulShutdownEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.IsShuttingDown() {
		t.Fatalf("expected shuttingDown to be set")
	}
	if len(em.Signaled) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(em.Signaled))
	}

	// A repeated graceful shutdown must not re-signal either container.
	if err := m.HandleEvent(context.Background(), events.GracefulShutdownEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(em.Signaled) != 2 {
		t.Fatalf("expected repeated graceful shutdown to be a no-op, got %d signals", len(em.Signaled))
	}
}

func TestForcibleShutdownEscalatesAfterGraceful(t *testing.T) {
	m, _, em := newTestManager(t, containermanager.Config{ApplicationID: "app1"})
	c1 := resource.Container{ID: "c1", Priority: 1}
	m.Registry().Insert(c1)
	em.Handles["c1"] = &fake.ExecutorHandle{ID: "exec-1"}

	if err := m.HandleEvent(context.Background(), events.GracefulShutdownEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.HandleEvent(context.Background(), events.ForcibleShutdownEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(em.Signaled) != 2 {
		t.Fatalf("expected escalation from graceful to forcible to still signal, got %d", len(em.Signaled))
	}
	if em.Signaled[0].Signal != containermanager.ExecutorKill {
		t.Fatalf("expected first signal to be graceful, got %v", em.Signaled[0].Signal)
	}
	if em.Signaled[1].Signal != containermanager.ExecutorKillForcibly {
		t.Fatalf("expected second signal to be forcible, got %v", em.Signaled[1].Signal)
	}
}

func TestHandleEventUnknownTypeIsError(t *testing.T) {
	m, _, _ := newTestManager(t, containermanager.Config{ApplicationID: "app1"})
	if err := m.HandleEvent(context.Background(), events.Event{Type: "BOGUS"}); err == nil {
		t.Fatalf("expected an error for an unknown event type")
	}
}
