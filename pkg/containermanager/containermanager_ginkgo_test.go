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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tech-jum/primus/internal/fake"
	"github.com/tech-jum/primus/pkg/containermanager"
	"github.com/tech-jum/primus/pkg/containermanager/events"
	"github.com/tech-jum/primus/pkg/containermanager/resource"
)

var _ = Describe("ContainerManager", func() {
	var (
		cancelCtx context.Context
		cancel    context.CancelFunc
		rm        *fake.RMClient
		em        *fake.ExecutorManager
		chain     *fake.ScheduleChain
		m         *containermanager.Manager
	)

	BeforeEach(func() {
		cancelCtx, cancel = context.WithCancel(context.Background())
		rm = &fake.RMClient{}
		em = fake.NewExecutorManager()
		chain = &fake.ScheduleChain{}
	})

	AfterEach(func() {
		cancel()
		if m != nil {
			m.Stop()
		}
	})

	Context("Allocation and completion", func() {
		It("admits an allocated container then releases it once the heartbeat reports completion", func() {
			c1 := resource.Container{ID: "c1", Priority: 1, Resource: resource.Resource{MemoryMiB: 1024, VCores: 1}}
			rm.AllocateResponses = []containermanager.AllocateResponse{
				{Allocated: []resource.Container{c1}},
				{Completed: []resource.ContainerStatus{{ID: "c1", ExitStatus: 0, Diagnostics: "done"}}},
			}

			policy := &fake.Policy{}
			m = containermanager.New(containermanager.Config{
				ApplicationID:    "app1",
				RMClient:         rm,
				ExecutorManager:  em,
				ScheduleChain:    chain,
				Policy:           policy,
				AllocateInterval: 10 * time.Millisecond,
			})
			policy.Manager = m
			Expect(m.Start(cancelCtx)).To(Succeed())

			Eventually(func() []fake.ReleasedCall {
				return em.Released
			}, time.Second).Should(HaveLen(1))
			Expect(em.Released[0].Container.ID).To(Equal(resource.ContainerId("c1")))
			Expect(chain.Contexts).To(HaveLen(1))
			Expect(chain.Contexts[0].Container.ID).To(Equal(resource.ContainerId("c1")))
		})
	})

	Context("Shutdown escalation", func() {
		It("signals every live container once per shutdown severity, and escalating to forcible still signals", func() {
			m = containermanager.New(containermanager.Config{
				ApplicationID:    "app1",
				RMClient:         rm,
				ExecutorManager:  em,
				AllocateInterval: time.Hour,
			})
			c1 := resource.Container{ID: "c1", Priority: 1}
			m.Registry().Insert(c1)
			em.Handles["c1"] = &fake.ExecutorHandle{ID: "exec-1"}

			Expect(m.HandleEvent(cancelCtx, events.GracefulShutdownEvent())).To(Succeed())
			Expect(m.HandleEvent(cancelCtx, events.GracefulShutdownEvent())).To(Succeed())
			Expect(em.Signaled).To(HaveLen(1))

			Expect(m.HandleEvent(cancelCtx, events.ForcibleShutdownEvent())).To(Succeed())
			Expect(em.Signaled).To(HaveLen(2))
			Expect(em.Signaled[1].Signal).To(Equal(containermanager.ExecutorKillForcibly))
		})
	})
})
