// Package metrics provides instrumentation hooks for the request pipeline.
package metrics

import "time"

// Generation outcomes other than failure kinds.
const (
	OutcomeOK = "ok"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// IncGeneration counts one finished pipeline run. outcome is OutcomeOK or
	// the failure kind.
	IncGeneration(operation, outcome string)
	// ObserveUpstreamDuration records the latency of one external call.
	ObserveUpstreamDuration(operation string, d time.Duration)
	// IncFreeUsageConsumed counts one metered free generation.
	IncFreeUsageConsumed()
	// IncAuth counts an authentication attempt by credential source.
	IncAuth(source, result string)
	// IncRateLimited counts a request rejected by the per-user limiter.
	IncRateLimited()
}
