package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChainRetries counts transient-failure retries per contract operation.
	ChainRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lendpool",
		Name:      "chain_retries_total",
		Help:      "Transient chain failures that triggered a retry.",
	}, []string{"op"})

	// ChainReverts counts non-retryable on-chain reverts per operation.
	ChainReverts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lendpool",
		Name:      "chain_reverts_total",
		Help:      "Contract writes that executed and reverted.",
	}, []string{"op"})

	// ReconciliationFaults counts persistent off-chain/on-chain mismatches
	// beyond tolerance. These always need operator attention.
	ReconciliationFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lendpool",
		Name:      "reconciliation_faults_total",
		Help:      "Mirror/chain mismatches beyond tolerance.",
	}, []string{"field"})
)
