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

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	controllerruntime "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/tech-jum/primus/pkg/containermanager"
	"github.com/tech-jum/primus/pkg/options"
)

// component names this process in structured logs, mirroring the teacher's
// cmd/controller/main.go component constant.
const component = "appmaster"

// buildCollaborators resolves the external contracts the ACM does not
// implement (RMClient, ExecutorManager, ScheduleChain, RoleCatalog,
// BlacklistTracker, ProgressSource, AllocationPolicy). They are
// deployment-specific — a YARN wire client, an executor orchestrator, a
// scheduling chain — none of which are in scope here (see spec.md's
// Non-goals). A deployment links a package that reassigns this variable
// from its own init(), the same "pick the concrete implementation at link
// time" shape as the teacher's cloudprovider/registry.NewCloudProvider.
var buildCollaborators = func(ctx context.Context, o options.Options) (containermanager.Config, error) {
	return containermanager.Config{}, fmt.Errorf("cmd/appmaster: no RMClient/ExecutorManager/ScheduleChain/RoleCatalog wired; link a deployment-specific package that sets buildCollaborators")
}

func main() {
	o, err := options.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "parsing flags: %s\n", err.Error())
		os.Exit(1)
	}
	if err := o.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid options: %s\n", err.Error())
		os.Exit(1)
	}

	ctx := loggingContext(o)
	ctx = options.ToContext(ctx, o)

	cfg, err := buildCollaborators(ctx, o)
	if err != nil {
		log.FromContext(ctx).Error(err, "unable to build container manager collaborators")
		os.Exit(1)
	}
	cfg.ApplicationID = o.ApplicationID
	cfg.AMHost = o.AMHost
	cfg.AMPort = o.AMPort
	cfg.TrackingURLBase = o.TrackingURLBase
	cfg.AllocateInterval = o.AllocateInterval
	cfg.EnableUpdateResource = o.EnableUpdateResource

	m := containermanager.New(cfg)

	go serveAmbientEndpoints(ctx, o, m)

	ctx = controllerruntime.SetupSignalHandler()
	if err := m.Run(ctx); err != nil {
		log.FromContext(ctx).Error(err, "application master aborting")
		os.Exit(1)
	}
}

// loggingContext builds a zap logger at the configured level, bridges it
// into controller-runtime's global logger through zapr exactly as the
// teacher's cmd/controller/main.go does, and returns a context carrying it.
func loggingContext(o options.Options) context.Context {
	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(o.LogLevel))

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zlog, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("building logger: %s", err.Error()))
	}

	logger := zapr.NewLogger(zlog).WithName(component)
	log.SetLogger(logger)
	return log.IntoContext(context.Background(), logger)
}

// serveAmbientEndpoints binds the metrics and health-probe HTTP servers the
// ambient stack requires, independent of the embedded tracking endpoint
// (out of scope per spec.md §1). It runs until ctx is canceled.
func serveAmbientEndpoints(ctx context.Context, o options.Options, m *containermanager.Manager) {
	logger := log.FromContext(ctx)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(crmetrics.Registry, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: fmt.Sprintf(":%d", o.MetricsPort), Handler: metricsMux}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if m.IsStopped() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "stopped")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "shuttingDown=%t\n", m.IsShuttingDown())
	})
	healthSrv := &http.Server{Addr: fmt.Sprintf(":%d", o.HealthProbePort), Handler: healthMux}

	go func() {
		<-ctx.Done()
		_ = metricsSrv.Close()
		_ = healthSrv.Close()
	}()

	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(err, "metrics server exited")
		}
	}()
	if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error(err, "health probe server exited")
	}
}
