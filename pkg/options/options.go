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

// Package options holds the container manager's process-level
// configuration: flags and environment variables in, a validated Options
// value out.
package options

import (
	"context"
	"flag"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
)

// Options is every CLI flag / environment variable the application master
// accepts. It adheres to the same flag-plus-env-fallback pattern used
// throughout the rest of this module's ambient stack.
type Options struct {
	ApplicationID        string        `validate:"required"`
	AMHost               string        `validate:"required"`
	AMPort               int           `validate:"min=1"`
	TrackingURLBase      string        `validate:"required,url"`
	AllocateInterval     time.Duration `validate:"min=1s"`
	EnableUpdateResource bool
	MetricsPort          int `validate:"min=0"`
	HealthProbePort      int `validate:"min=0"`
	LogLevel             string
}

type optionsKey struct{}

// ParseFlags builds an Options from the process's command-line flags,
// falling back to environment variables and then to hard defaults, the same
// three-tier precedence the teacher's cmd/controller/main.go uses.
func ParseFlags(args []string) (Options, error) {
	fs := flag.NewFlagSet("appmaster", flag.ContinueOnError)
	o := Options{}

	fs.StringVar(&o.ApplicationID, "application-id", WithDefaultString("APPLICATION_ID", ""), "The resource-manager application id this process is the master for")
	fs.StringVar(&o.AMHost, "am-host", WithDefaultString("AM_HOST", ""), "The host this application master registers with the resource manager under")
	fs.IntVar(&o.AMPort, "am-port", WithDefaultInt("AM_PORT", 0), "The port this application master registers with the resource manager under")
	fs.StringVar(&o.TrackingURLBase, "tracking-url-base", WithDefaultString("TRACKING_URL_BASE", "http://localhost:8081"), "Base URL the embedded tracking endpoint is reachable at")
	fs.DurationVar(&o.AllocateInterval, "allocate-interval", WithDefaultDuration("ALLOCATE_INTERVAL", 10*time.Second), "Period between resource-manager heartbeats")
	fs.BoolVar(&o.EnableUpdateResource, "enable-update-resource", WithDefaultBool("ENABLE_UPDATE_RESOURCE", false), "Whether the control loop issues container resize requests")
	fs.IntVar(&o.MetricsPort, "metrics-port", WithDefaultInt("METRICS_PORT", 8080), "The port the metrics endpoint binds to")
	fs.IntVar(&o.HealthProbePort, "health-probe-port", WithDefaultInt("HEALTH_PROBE_PORT", 8081), "The port the health probe endpoint binds to")
	fs.StringVar(&o.LogLevel, "log-level", WithDefaultString("LOG_LEVEL", "info"), "One of debug, info, error")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	return o, nil
}

// Validate applies the struct-tag rules above (for example, AllocateInterval
// must be at least 1s via its min=1s tag). The result passes through
// multierr so that further checks can be combined with it and every failure
// reported at once.
func (o Options) Validate() error {
	v := validator.New()
	return multierr.Combine(
		wrapValidationErr(v.Struct(o)),
	)
}

func wrapValidationErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("validating options: %w", err)
}

// ToContext returns a copy of ctx carrying o.
func ToContext(ctx context.Context, o Options) context.Context {
	return context.WithValue(ctx, optionsKey{}, o)
}

// FromContext extracts the Options previously attached with ToContext. It
// panics if none is present, the same developer-error contract the
// teacher's settings.FromContext uses: missing options mean the process was
// wired up wrong, not a recoverable runtime condition.
func FromContext(ctx context.Context) Options {
	v := ctx.Value(optionsKey{})
	if v == nil {
		panic("options: no Options in context")
	}
	return v.(Options)
}
