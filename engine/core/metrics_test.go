package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetMetrics(t *testing.T) {
	t.Helper()
	require.NoError(t, MetricsInitialize())
	*metricsState = MetricsState{}
}

func TestMetricsFrameTimeAverage(t *testing.T) {
	resetMetrics(t)

	// The average publishes once a full window of samples is in.
	for i := 0; i < int(AVG_COUNT)-1; i++ {
		MetricsUpdate(0.5)
	}
	assert.Zero(t, MetricsFrameTime())

	MetricsUpdate(0.5)
	assert.Equal(t, 500.0, MetricsFrameTime())
}

func TestMetricsFPSCountsFramesPerAccumulatedSecond(t *testing.T) {
	resetMetrics(t)

	// Three half-second frames push the accumulator past one second once.
	MetricsUpdate(0.5)
	MetricsUpdate(0.5)
	assert.Zero(t, MetricsFPS())

	MetricsUpdate(0.5)
	assert.Equal(t, 2.0, MetricsFPS())

	fps, avg := MetricsFrame()
	assert.Equal(t, 2.0, fps)
	assert.Zero(t, avg)
}
