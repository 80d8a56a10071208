package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector counts like the atomic collector and mirrors every
// event into Prometheus metrics registered on one registry.
type PrometheusCollector struct {
	Collector
	simulations  prometheus.Counter
	fullPlayouts prometheus.Counter
	proofs       prometheus.Counter
	treeResets   prometheus.Counter
	searches     prometheus.Counter
	collisions   prometheus.Gauge
	duration     prometheus.Histogram
}

func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		Collector: NewCollector(),
		simulations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcts",
			Name:      "simulations_total",
			Help:      "Simulations run by all searches.",
		}),
		fullPlayouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcts",
			Name:      "full_playouts_total",
			Help:      "Playouts that reached the end of the game.",
		}),
		proofs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcts",
			Name:      "proofs_total",
			Help:      "Nodes proven won or lost by the solver.",
		}),
		treeResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcts",
			Name:      "tree_resets_total",
			Help:      "Searches that started from a fresh tree.",
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcts",
			Name:      "searches_total",
			Help:      "Completed searches.",
		}),
		collisions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mcts",
			Name:      "table_collisions",
			Help:      "Overwrite collisions in the shared tables.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mcts",
			Name:      "search_duration_seconds",
			Help:      "Wall time of one search.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	for _, m := range []prometheus.Collector{
		c.simulations, c.fullPlayouts, c.proofs, c.treeResets, c.searches, c.collisions, c.duration,
	} {
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("register search metrics: %w", err)
		}
	}
	return c, nil
}

func (c *PrometheusCollector) AddSimulation() {
	c.Collector.AddSimulation()
	c.simulations.Inc()
}

func (c *PrometheusCollector) AddFullPlayout() {
	c.Collector.AddFullPlayout()
	c.fullPlayouts.Inc()
}

func (c *PrometheusCollector) AddProof() {
	c.Collector.AddProof()
	c.proofs.Inc()
}

func (c *PrometheusCollector) SetCollisions(n int64) {
	c.Collector.SetCollisions(n)
	c.collisions.Set(float64(n))
}

func (c *PrometheusCollector) Complete() SearchMetric {
	metric := c.Collector.Complete()
	c.searches.Inc()
	c.duration.Observe(metric.Duration.Seconds())
	if metric.IsTreeReset {
		c.treeResets.Inc()
	}
	return metric
}
