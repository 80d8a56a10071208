package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Run("counts one search", func(t *testing.T) {
		c := NewCollector()
		c.Start(4, 10)
		c.SetTreeReset(true)
		c.AddSimulation()
		c.AddSimulation()
		c.AddFullPlayout()
		c.AddProof()
		c.SetCollisions(3)

		m := c.Complete()

		require.Equal(t, 4, m.Goroutines)
		require.Equal(t, 10, m.Cutoff)
		require.Equal(t, 2, m.Simulations)
		require.Equal(t, 1, m.FullPlayouts)
		require.Equal(t, 1, m.Proofs)
		require.EqualValues(t, 3, m.Collisions)
		require.True(t, m.IsTreeReset)
	})

	t.Run("start resets the counters", func(t *testing.T) {
		c := NewCollector()
		c.Start(1, 0)
		c.AddSimulation()
		c.Start(1, 0)

		require.Zero(t, c.Complete().Simulations)
	})

	t.Run("dummy collector", func(t *testing.T) {
		c := NewDummyCollector()
		c.AddSimulation()
		require.Equal(t, SearchMetric{}, c.Complete())
	})
}

func TestPrometheusCollector(t *testing.T) {
	t.Run("mirrors events", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c, err := NewPrometheusCollector(reg)
		require.NoError(t, err)

		c.Start(2, 0)
		c.SetTreeReset(true)
		for i := 0; i < 5; i++ {
			c.AddSimulation()
		}
		c.AddFullPlayout()
		c.AddProof()
		c.SetCollisions(7)
		m := c.Complete()

		require.Equal(t, 5, m.Simulations)
		require.Equal(t, 5.0, testutil.ToFloat64(c.simulations))
		require.Equal(t, 1.0, testutil.ToFloat64(c.fullPlayouts))
		require.Equal(t, 1.0, testutil.ToFloat64(c.proofs))
		require.Equal(t, 1.0, testutil.ToFloat64(c.treeResets))
		require.Equal(t, 1.0, testutil.ToFloat64(c.searches))
		require.Equal(t, 7.0, testutil.ToFloat64(c.collisions))
		require.Equal(t, 1, testutil.CollectAndCount(c.duration))
	})

	t.Run("counters accumulate across searches", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c, err := NewPrometheusCollector(reg)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			c.Start(1, 0)
			c.AddSimulation()
			c.Complete()
		}
		require.Equal(t, 3.0, testutil.ToFloat64(c.simulations))
		require.Equal(t, 3.0, testutil.ToFloat64(c.searches))
	})

	t.Run("registering twice fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		_, err := NewPrometheusCollector(reg)
		require.NoError(t, err)

		_, err = NewPrometheusCollector(reg)
		require.Error(t, err)
	})
}
