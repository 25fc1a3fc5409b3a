// Package metrics implements the engine's MetricRecorder and Tracer on Prometheus and OpenTelemetry.
package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/chunkflow/pkg/batch/core/config"
	metrics "github.com/tigerroll/chunkflow/pkg/batch/core/metrics"
	logger "github.com/tigerroll/chunkflow/pkg/batch/support/util/logger"
)

// Backends is the recorder and tracer selected by configuration.
type Backends struct {
	fx.Out
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
}

// NewBackends builds the configured backends. With nothing enabled, both are no-ops.
// Exporters and the /metrics endpoint are stopped with the application.
func NewBackends(lc fx.Lifecycle, cfg *config.Config) (Backends, error) {
	mc := cfg.Chunkflow.Metrics
	var recorders []metrics.MetricRecorder
	tracer := metrics.NewNoOpTracer()

	if mc.Prometheus.Enabled {
		prom := NewPrometheusRecorder()
		recorders = append(recorders, prom)
		if mc.Prometheus.Address != "" {
			srv := NewServer(mc.Prometheus.Address, prom)
			lc.Append(fx.Hook{OnStart: srv.Start, OnStop: srv.Stop})
		}
	}

	if mc.Otel.Enabled {
		providers, err := NewOtelProviders(context.Background(), mc.Otel)
		if err != nil {
			return Backends{}, err
		}
		lc.Append(fx.Hook{OnStop: providers.Shutdown})

		otelRecorder, err := NewOpenTelemetryRecorder(providers.MeterProvider)
		if err != nil {
			return Backends{}, err
		}
		recorders = append(recorders, otelRecorder)
		tracer = NewOpenTelemetryTracer(providers.TracerProvider)
		logger.Infof("OpenTelemetry export enabled (%s, %s).", mc.Otel.Protocol, mc.Otel.Endpoint)
	}

	var recorder metrics.MetricRecorder
	switch len(recorders) {
	case 0:
		recorder = metrics.NewNoOpMetricRecorder()
	case 1:
		recorder = recorders[0]
	default:
		recorder = metrics.NewCompositeRecorder(recorders...)
	}
	return Backends{Recorder: recorder, Tracer: tracer}, nil
}

// Module provides metrics.MetricRecorder and metrics.Tracer.
var Module = fx.Options(
	fx.Provide(NewBackends),
)
