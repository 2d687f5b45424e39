// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the rewind gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label cardinality is bounded: endpoint is the logical provider resource
// (users, streams, clips, videos, ...), never a full URL.

var (
	// UpstreamRequestsTotal counts outbound provider requests by endpoint and outcome.
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewind_upstream_requests_total",
		Help: "Total number of provider API requests, by endpoint and status class.",
	}, []string{"endpoint", "status"})

	// UpstreamRequestDuration observes outbound provider request latency.
	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rewind_upstream_request_duration_seconds",
		Help:    "Provider API request latencies in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// CacheHitsTotal counts gateway cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewind_cache_hits_total",
		Help: "Total number of gateway requests answered from cache.",
	})

	// CacheMissesTotal counts gateway cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewind_cache_misses_total",
		Help: "Total number of gateway requests that required a provider call.",
	})

	// BatchChunksTotal counts batch helper chunk requests by helper and outcome.
	BatchChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewind_batch_chunks_total",
		Help: "Total number of batch helper chunk requests, by helper and outcome.",
	}, []string{"helper", "outcome"})

	// RecapSelectionsTotal counts highlight selections computed.
	RecapSelectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewind_recap_selections_total",
		Help: "Total number of highlight reels selected.",
	})

	// RecapSelectedClips observes how many clips each selection admits.
	RecapSelectedClips = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rewind_recap_selected_clips",
		Help:    "Number of clips admitted per highlight selection.",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
	})
)
