package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncGeneration(operation, outcome string) {}
func (n *NoopRecorder) ObserveUpstreamDuration(operation string, d time.Duration) {}
func (n *NoopRecorder) IncFreeUsageConsumed() {}
func (n *NoopRecorder) IncAuth(source, result string) {}
func (n *NoopRecorder) IncRateLimited() {}
