// Package metrics defines the recorder interface used by SDK components to
// report counters and latencies, with prometheus and no-op implementations.
package metrics

import "time"

// Labels qualify a metric; the prometheus recorder reads "org" and
// "service", other keys are ignored. Nil is fine.
type Labels = map[string]string

// Counter names reported by the SDK.
const (
	CounterCalls       = "calls"
	CounterCallErrors  = "call_errors"
	CounterChainTx     = "chain_tx"
	CounterChainReads  = "chain_reads"
	CounterClaims      = "claims"
	CounterCacheRescan = "channel_rescans"
)

// Recorder is safe for concurrent use.
type Recorder interface {
	IncCounter(name string, labels Labels)
	ObserveLatency(name string, duration time.Duration, labels Labels)
}
