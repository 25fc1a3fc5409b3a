package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"github.com/tigerroll/chunkflow/pkg/batch/core/config"
	coremetrics "github.com/tigerroll/chunkflow/pkg/batch/core/metrics"
	"github.com/tigerroll/chunkflow/pkg/batch/infrastructure/metrics"
)

func TestNewBackends(t *testing.T) {
	t.Run("nothing enabled", func(t *testing.T) {
		backends, err := metrics.NewBackends(fxtest.NewLifecycle(t), config.NewConfig())
		require.NoError(t, err)
		assert.IsType(t, &coremetrics.NoOpMetricRecorder{}, backends.Recorder)
		assert.IsType(t, &coremetrics.NoOpTracer{}, backends.Tracer)
	})

	t.Run("prometheus without endpoint", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Chunkflow.Metrics.Prometheus.Enabled = true
		lc := fxtest.NewLifecycle(t)
		backends, err := metrics.NewBackends(lc, cfg)
		require.NoError(t, err)
		assert.IsType(t, &metrics.PrometheusRecorder{}, backends.Recorder)
		lc.RequireStart().RequireStop()
	})

	t.Run("prometheus endpoint", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Chunkflow.Metrics.Prometheus.Enabled = true
		cfg.Chunkflow.Metrics.Prometheus.Address = "127.0.0.1:0"
		lc := fxtest.NewLifecycle(t)
		_, err := metrics.NewBackends(lc, cfg)
		require.NoError(t, err)
		lc.RequireStart().RequireStop()
	})
}
