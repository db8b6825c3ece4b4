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

// Package fake provides in-memory test doubles for the ACM's external
// collaborator contracts, grounded on the same role the teacher's own
// pkg/fake package plays for its cloud-provider clients.
package fake

import (
	"context"
	"sync"

	"github.com/tech-jum/primus/pkg/containermanager"
	"github.com/tech-jum/primus/pkg/containermanager/resource"
)

// BlacklistUpdateCall records one RMClient.UpdateBlacklist invocation.
type BlacklistUpdateCall struct {
	Additions []string
	Removals  []string
}

// RMClient is an in-memory resource-manager client. Responses are served
// from AllocateResponses in order, one per Allocate call; once exhausted it
// returns an empty response.
type RMClient struct {
	mu sync.Mutex

	AllocateResponses []containermanager.AllocateResponse
	allocateCalls     int

	RegisterErr  error
	AllocateErr  error
	BlacklistErr error

	ReleasedIDs    []resource.ContainerId
	BlacklistCalls []BlacklistUpdateCall
	UpdateRequests []UpdateRequest
}

// UpdateRequest records one RequestContainerUpdate invocation.
type UpdateRequest struct {
	Container  resource.Container
	Version    uint64
	UpdateType resource.UpdateType
	Target     resource.Resource
	ExecType   resource.ExecutionType
}

func (c *RMClient) Register(ctx context.Context, host string, port int, trackingURL string) (containermanager.RegisterResponse, error) {
	if c.RegisterErr != nil {
		return containermanager.RegisterResponse{}, c.RegisterErr
	}
	return containermanager.RegisterResponse{}, nil
}

func (c *RMClient) Allocate(ctx context.Context, progress float64) (containermanager.AllocateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AllocateErr != nil {
		return containermanager.AllocateResponse{}, c.AllocateErr
	}
	if c.allocateCalls >= len(c.AllocateResponses) {
		c.allocateCalls++
		return containermanager.AllocateResponse{}, nil
	}
	resp := c.AllocateResponses[c.allocateCalls]
	c.allocateCalls++
	return resp, nil
}

func (c *RMClient) ReleaseAssigned(ctx context.Context, id resource.ContainerId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ReleasedIDs = append(c.ReleasedIDs, id)
}

func (c *RMClient) UpdateBlacklist(ctx context.Context, additions, removals []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BlacklistErr != nil {
		return c.BlacklistErr
	}
	c.BlacklistCalls = append(c.BlacklistCalls, BlacklistUpdateCall{Additions: additions, Removals: removals})
	return nil
}

func (c *RMClient) RequestContainerUpdate(ctx context.Context, container resource.Container, version uint64, updateType resource.UpdateType, target resource.Resource, execType resource.ExecutionType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.UpdateRequests = append(c.UpdateRequests, UpdateRequest{
		Container:  container,
		Version:    version,
		UpdateType: updateType,
		Target:     target,
		ExecType:   execType,
	})
	return nil
}
