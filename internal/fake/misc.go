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
	"context"
	"sync"

	"github.com/tech-jum/primus/pkg/containermanager"
	"github.com/tech-jum/primus/pkg/containermanager/resource"
)

// ScheduleChain is an in-memory ScheduleChain double. If Rewrite is set, it
// replaces ScheduleContext.ErrMsg with its result.
type ScheduleChain struct {
	mu       sync.Mutex
	Contexts []containermanager.ScheduleContext
	Rewrite  func(containermanager.ScheduleContext) string
}

func (s *ScheduleChain) ProcessReleasedContainer(ctx context.Context, sc *containermanager.ScheduleContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Contexts = append(s.Contexts, *sc)
	if s.Rewrite != nil {
		sc.ErrMsg = s.Rewrite(*sc)
	}
}

// RoleCatalog is an in-memory RoleCatalog double.
type RoleCatalog struct {
	mu    sync.Mutex
	Roles map[resource.Priority]containermanager.RoleInfo
}

// NewRoleCatalog returns a RoleCatalog seeded with roles.
func NewRoleCatalog(roles map[resource.Priority]containermanager.RoleInfo) *RoleCatalog {
	return &RoleCatalog{Roles: roles}
}

func (c *RoleCatalog) Priorities() []resource.Priority {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]resource.Priority, 0, len(c.Roles))
	for p := range c.Roles {
		out = append(out, p)
	}
	return out
}

func (c *RoleCatalog) RoleByPriority(p resource.Priority) (containermanager.RoleInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.Roles[p]
	return info, ok
}

// BlacklistTracker is an in-memory BlacklistTracker double. Nodes is
// returned verbatim on every call; Absent makes NodeBlacklist report no
// tracker present, exercising the "absent yields empty set" contract.
type BlacklistTracker struct {
	mu     sync.Mutex
	Nodes  []string
	Absent bool
}

func (t *BlacklistTracker) Set(nodes []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Nodes = nodes
}

func (t *BlacklistTracker) NodeBlacklist() ([]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Absent {
		return nil, false
	}
	return t.Nodes, true
}

// ProgressSource is a fixed-value ProgressSource double.
type ProgressSource float64

func (p ProgressSource) Progress() float64 { return float64(p) }

// Policy is an in-memory AllocationPolicy double that admits every
// allocated container into the manager's registry, the way a real
// role-aware subclass would after consulting the scheduling chain.
type Policy struct {
	mu sync.Mutex

	Manager *containermanager.Manager

	HandleAllocationErr error
	AskForContainersErr error
	AskCalls            int
}

func (p *Policy) HandleAllocation(ctx context.Context, resp containermanager.AllocateResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.HandleAllocationErr != nil {
		return p.HandleAllocationErr
	}
	for _, c := range resp.Allocated {
		p.Manager.Registry().Insert(c)
	}
	return nil
}

func (p *Policy) AskForContainers(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AskCalls++
	return p.AskForContainersErr
}
