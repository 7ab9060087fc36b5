// Package metrics exposes simulation counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"synthpop/internal/contentcache"
)

const namespace = "synthpop"

// Collector owns its registry so tests and several instances do not collide
// on the global one.
type Collector struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	interactions  *prometheus.CounterVec
	actorsCreated prometheus.Counter
	profiles      *prometheus.CounterVec
	cache         *prometheus.CounterVec
	population    *prometheus.GaugeVec
}

func New() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Simulation cycles by outcome",
	}, []string{"status"})

	c.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of one simulation cycle, sleep excluded",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	c.interactions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interactions_total",
		Help:      "Synthetic interactions written, by kind and outcome",
	}, []string{"kind", "status"})

	c.actorsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actors_created_total",
		Help:      "Synthetic actors created",
	})

	c.profiles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_inferences_total",
		Help:      "Profile inference passes by outcome",
	}, []string{"status"})

	c.cache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "content_cache_events_total",
		Help:      "Content cache lookups by result",
	}, []string{"result"})

	c.population = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "actors",
		Help:      "Actor count by kind at the last census",
	}, []string{"kind"})

	c.registry.MustRegister(
		c.cycles, c.cycleDuration, c.interactions, c.actorsCreated,
		c.profiles, c.cache, c.population,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) CycleDone(d time.Duration, err error) {
	c.cycles.WithLabelValues(status(err)).Inc()
	c.cycleDuration.Observe(d.Seconds())
}

func (c *Collector) Interaction(kind string, err error) {
	c.interactions.WithLabelValues(kind, status(err)).Inc()
}

func (c *Collector) ActorsCreated(n int) {
	c.actorsCreated.Add(float64(n))
}

func (c *Collector) ProfileInferred(err error) {
	c.profiles.WithLabelValues(status(err)).Inc()
}

func (c *Collector) Population(humans, synthetic int) {
	c.population.WithLabelValues("human").Set(float64(humans))
	c.population.WithLabelValues("synthetic").Set(float64(synthetic))
}

// CacheHooks feeds content cache events into the collector.
func (c *Collector) CacheHooks() contentcache.Hooks {
	return contentcache.Hooks{
		OnHit:       func() { c.cache.WithLabelValues("hit").Inc() },
		OnMiss:      func() { c.cache.WithLabelValues("miss").Inc() },
		OnTierHit:   func() { c.cache.WithLabelValues("tier_hit").Inc() },
		OnTierError: func(error) { c.cache.WithLabelValues("tier_error").Inc() },
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
