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

// Package metrics registers the container manager's Prometheus instruments
// against controller-runtime's global metrics registry, the same registry
// the embedded HTTP tracking endpoint serves.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	Namespace = "am"
	subsystem = "container_manager"
)

// DurationBuckets returns the histogram buckets used for heartbeat timing,
// spanning well below and above the 10s allocate interval.
func DurationBuckets() []float64 {
	return []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 20, 30}
}

var (
	ExecutorExpired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      "executor_expired",
		Help:      "Count of EXECUTOR_EXPIRED events handled, tagged by application id.",
	}, []string{"application_id"})

	ReleaseContainer = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      "release_container",
		Help:      "Count of containers released through onContainerReleased, tagged by application id.",
	}, []string{"application_id"})

	ControlLoopTicks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      "control_loop_ticks_total",
		Help:      "Count of completed control loop ticks, tagged by application id.",
	}, []string{"application_id"})

	HeartbeatDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      "heartbeat_duration_seconds",
		Help:      "Duration of a single allocate() RPC, tagged by application id.",
		Buckets:   DurationBuckets(),
	}, []string{"application_id"})
)

func init() {
	crmetrics.Registry.MustRegister(ExecutorExpired, ReleaseContainer, ControlLoopTicks, HeartbeatDuration)
}
