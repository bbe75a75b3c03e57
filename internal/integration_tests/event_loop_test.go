package integration_tests

import (
	"fmt"
	"testing"

	"github.com/specialistvlad/capscan/internal/loop"
	"github.com/specialistvlad/capscan/internal/resolver"
	"github.com/specialistvlad/capscan/modules/eventbit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const failingEventsScan = `
Parameters:
  Toy:
    x: 0

ObsLikes:
  - capability: lnL_signal
    purpose: LogLike

Rules:
  - capability: Event
    options:
      failure_rate: 1
  - capability: EventLoop
    options:
      workers: 3
      max_failed_events: 5
      invalidate_failed_points: %s

KeyValues:
  likelihood:
    model_invalid_for_lnlike_below: -500
`

func TestFailedEventCap(t *testing.T) {
	t.Parallel()

	t.Run("invalidates the point", func(t *testing.T) {
		t.Parallel()

		res := runIntegrationTest(t, map[string]string{"scan.yaml": fmt.Sprintf(failingEventsScan, "true")})
		require.NoError(t, res.Err)

		summary := res.App.Summary()
		assert.Equal(t, 1, summary.Invalid)
		assert.Equal(t, loop.FailureReason, summary.LastReason)
		for _, rec := range res.App.Results().Point(0) {
			assert.False(t, rec.Valid)
			assert.Equal(t, resolver.PurposeLikelihood, rec.Purpose)
			assert.Equal(t, -500.0, rec.Value)
		}
	})

	t.Run("warns and keeps the point", func(t *testing.T) {
		t.Parallel()

		res := runIntegrationTest(t, map[string]string{"scan.yaml": fmt.Sprintf(failingEventsScan, "false")})
		require.NoError(t, res.Err)

		summary := res.App.Summary()
		assert.Equal(t, 1, summary.Valid)
		assert.Equal(t, 1, summary.Warnings)
		lnL := res.App.Results().Values(eventbit.LikelihoodCapability.Name)
		require.Len(t, lnL, 1)
		assert.InDelta(t, eventbit.PoissonLogLike(3, 2), lnL[0], 1e-12)
		assert.Contains(t, res.Logs, loop.FailureReason)
	})
}

func TestEventLoopAcrossGrid(t *testing.T) {
	t.Parallel()

	scanHCL := `
models = ["Toy"]

request "signal_efficiency" {}

rule {
  capability = "EventLoop"
  options {
    workers        = 4
    subsystems     = ["low", "high"]
    max_iterations = 120
    batch_size     = 40
  }
}

scan {
  source = "grid"
  parameter "x" {
    min   = 0
    max   = 20
    steps = 2
  }
}
`
	res := runIntegrationTest(t, map[string]string{"scan.hcl": scanHCL})
	require.NoError(t, res.Err)

	// Both subsystems accumulate into the same estimate.
	assert.Equal(t, []any{1.0, 0.0}, res.App.Results().Values(eventbit.ObservableCapability.Name))
}
