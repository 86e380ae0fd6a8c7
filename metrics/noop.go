package metrics

import "time"

// NoopRecorder drops every observation; it is the default when no recorder
// is configured.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, Labels)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, Labels) {}
