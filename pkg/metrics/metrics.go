// Package metrics exposes optional Prometheus instrumentation for the five
// cores. Every core works with a nil *Metrics (all methods become no-ops);
// instrumentation is opt-in at construction time, never required to satisfy
// a core's contract.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the package-level registry used by GetMetrics.
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer namespaces every metric under the "primitives"
	// service label, mirroring how the teacher scopes its own registerer.
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "primitives"}, DefaultRegistry)

	once    sync.Once
	metrics *Metrics
)

// Metrics holds one counter/gauge family per core. A nil *Metrics is valid
// everywhere these are used; see the nil-receiver-safe helper methods in
// helpers.go.
type Metrics struct {
	AppendLogAppendsTotal    prometheus.Counter
	AppendLogChunkGrowsTotal prometheus.Counter

	PoolBorrowsTotal       *prometheus.CounterVec
	PoolReleasesTotal      *prometheus.CounterVec
	PoolRewarmsTotal       *prometheus.CounterVec
	PoolAvailable          *prometheus.GaugeVec

	CacheHitsTotal     *prometheus.CounterVec
	CacheMissesTotal   *prometheus.CounterVec
	CacheEvictionsTotal *prometheus.CounterVec

	PubSubPublishedTotal *prometheus.CounterVec
	PubSubCommittedTotal *prometheus.CounterVec

	ActorScheduled     *prometheus.GaugeVec
	ActorHandledTotal  *prometheus.CounterVec
	ActorPanicsTotal   *prometheus.CounterVec
}

// GetMetrics returns the process-wide Metrics instance, registered against
// DefaultRegisterer on first use.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics registers a fresh metric family set against registerer. Pass a
// prometheus.NewRegistry()-backed registerer in tests to avoid collisions
// with the process-wide default.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}
	f := promauto.With(registerer)
	return &Metrics{
		AppendLogAppendsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "appendlog_appends_total",
			Help: "Total number of values appended across all keys.",
		}),
		AppendLogChunkGrowsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "appendlog_chunk_directory_grows_total",
			Help: "Total number of chunk directory growth events across all keys.",
		}),

		PoolBorrowsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_borrows_total",
			Help: "Total number of successful borrows.",
		}, []string{"pool"}),
		PoolReleasesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_releases_total",
			Help: "Total number of releases, by validation outcome.",
		}, []string{"pool", "valid"}),
		PoolRewarmsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pool_rewarms_total",
			Help: "Total number of replacement resources minted to maintain the minimum warm set.",
		}, []string{"pool"}),
		PoolAvailable: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pool_available",
			Help: "Current number of idle resources.",
		}, []string{"pool"}),

		CacheHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of Get calls satisfied from the cache.",
		}, []string{"cache"}),
		CacheMissesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of Get calls that found no cached entry.",
		}, []string{"cache"}),
		CacheEvictionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of LRU evictions.",
		}, []string{"cache"}),

		PubSubPublishedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_published_total",
			Help: "Total number of messages published, by topic.",
		}, []string{"topic"}),
		PubSubCommittedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_committed_total",
			Help: "Total number of commit calls that advanced a group's offset, by topic and group.",
		}, []string{"topic", "group"}),

		ActorScheduled: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "actor_scheduled",
			Help: "1 if the actor currently holds the scheduled flag, else 0.",
		}, []string{"actor"}),
		ActorHandledTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "actor_messages_handled_total",
			Help: "Total number of messages an actor's handler returned from without panicking.",
		}, []string{"actor"}),
		ActorPanicsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "actor_handler_panics_total",
			Help: "Total number of handler panics caught by the drain loop.",
		}, []string{"actor"}),
	}
}
