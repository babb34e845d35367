package asset

import "time"

// Metrics exposes manager-level observability hooks. NoopMetrics is used
// when Options.Metrics is nil. Cache-backend metrics are configured on the
// store itself.
type Metrics interface {
	CacheHit()
	CacheMiss()
	LoadStarted()
	LoadFinished(ok bool, d time.Duration)
	Retry()
	QueueDepth(n int)
	ActiveLoads(n int)
	MemoryFreed(bytes int64)
}

// NoopMetrics is a Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) CacheHit()                        {}
func (NoopMetrics) CacheMiss()                       {}
func (NoopMetrics) LoadStarted()                     {}
func (NoopMetrics) LoadFinished(bool, time.Duration) {}
func (NoopMetrics) Retry()                           {}
func (NoopMetrics) QueueDepth(int)                   {}
func (NoopMetrics) ActiveLoads(int)                  {}
func (NoopMetrics) MemoryFreed(int64)                {}

var _ Metrics = NoopMetrics{}
