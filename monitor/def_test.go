package monitor

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsUsableBeforeStart(t *testing.T) {
	t.Run("engine collectors accept writes without the monitor server", func(t *testing.T) {
		assert.NotNil(t, FramesComposited)
		assert.NotNil(t, ComparisonsTotal)
		assert.NotNil(t, SmoothedScore)

		before := testutil.ToFloat64(FramesComposited)
		assert.NotPanics(t, func() {
			FramesComposited.Inc()
			ComparisonsTotal.Inc()
			SmoothedScore.Set(42.5)
		})
		assert.InDelta(t, before+1, testutil.ToFloat64(FramesComposited), 1e-9)
		assert.InDelta(t, 42.5, testutil.ToFloat64(SmoothedScore), 1e-9)
	})

	t.Run("process collectors accept writes without the monitor server", func(t *testing.T) {
		assert.NotPanics(t, func() {
			memUsage.Set(128)
			cpuUsage.Set(3.5)
		})
	})
}
