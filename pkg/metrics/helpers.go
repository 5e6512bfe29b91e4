package metrics

// Each helper is a nil-receiver-safe no-op, so a core can be constructed
// with a nil *Metrics and call these unconditionally.

func (m *Metrics) AppendObserved() {
	if m == nil {
		return
	}
	m.AppendLogAppendsTotal.Inc()
}

func (m *Metrics) ChunkGrowObserved() {
	if m == nil {
		return
	}
	m.AppendLogChunkGrowsTotal.Inc()
}

func (m *Metrics) AppendObservedN(n int) {
	if m == nil {
		return
	}
	m.AppendLogAppendsTotal.Add(float64(n))
}

func (m *Metrics) PoolBorrowed(pool string) {
	if m == nil {
		return
	}
	m.PoolBorrowsTotal.WithLabelValues(pool).Inc()
}

func (m *Metrics) PoolReleased(pool string, valid bool) {
	if m == nil {
		return
	}
	v := "false"
	if valid {
		v = "true"
	}
	m.PoolReleasesTotal.WithLabelValues(pool, v).Inc()
}

func (m *Metrics) PoolRewarmed(pool string) {
	if m == nil {
		return
	}
	m.PoolRewarmsTotal.WithLabelValues(pool).Inc()
}

func (m *Metrics) PoolAvailableSet(pool string, n float64) {
	if m == nil {
		return
	}
	m.PoolAvailable.WithLabelValues(pool).Set(n)
}

func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) CacheEvicted(cache string) {
	if m == nil {
		return
	}
	m.CacheEvictionsTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) PubSubPublished(topic string) {
	if m == nil {
		return
	}
	m.PubSubPublishedTotal.WithLabelValues(topic).Inc()
}

func (m *Metrics) PubSubCommitted(topic, group string) {
	if m == nil {
		return
	}
	m.PubSubCommittedTotal.WithLabelValues(topic, group).Inc()
}

func (m *Metrics) ActorScheduledSet(actor string, scheduled bool) {
	if m == nil {
		return
	}
	v := 0.0
	if scheduled {
		v = 1.0
	}
	m.ActorScheduled.WithLabelValues(actor).Set(v)
}

func (m *Metrics) ActorHandled(actor string) {
	if m == nil {
		return
	}
	m.ActorHandledTotal.WithLabelValues(actor).Inc()
}

func (m *Metrics) ActorPanicked(actor string) {
	if m == nil {
		return
	}
	m.ActorPanicsTotal.WithLabelValues(actor).Inc()
}
