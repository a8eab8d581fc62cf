package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "multisig_hub"

var (
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by cache name and result (hit, miss, shared).",
	}, []string{"cache", "result"})

	ChainBatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "chain_batch_duration_seconds",
		Help:      "Latency of JSON-RPC batch round trips.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	ChainReadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chain_read_errors_total",
		Help:      "Failed chain reads by method.",
	}, []string{"method"})

	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Contract events handled by the event bridge.",
	}, []string{"type"})

	PendingWorkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pending_work_duration_seconds",
		Help:      "Time to gather and reduce a pending-work report.",
		Buckets:   prometheus.DefBuckets,
	})

	PendingWorkProvisional = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pending_work_provisional_total",
		Help:      "Pending-work reports emitted with at least one unavailable wallet.",
	})

	ActionsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "actions_total",
		Help:      "Wallet actions by kind and outcome (sent, failed, succeeded, reverted).",
	}, []string{"kind", "outcome"})
)
