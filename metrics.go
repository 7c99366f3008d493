package wire

import (
	"sync/atomic"
	"time"

	"github.com/behrlich/go-wire/internal/interfaces"
)

// LatencyBuckets defines the command-dispatch latency histogram buckets in
// nanoseconds. Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks performance and protocol-level statistics for a wire
// endpoint (client or server).
type Metrics struct {
	// Command counters
	CommandCount      atomic.Uint64 // Total commands dispatched
	FatalCommandCount atomic.Uint64 // Commands that triggered a fatal protocol error

	// Builder result counters
	BuilderSuccessCount atomic.Uint64
	BuilderErrorCount   atomic.Uint64
	BuilderUnknownCount atomic.Uint64

	// Map request counters
	MapReadSuccessCount  atomic.Uint64
	MapReadErrorCount    atomic.Uint64
	MapWriteSuccessCount atomic.Uint64
	MapWriteErrorCount   atomic.Uint64

	// Chunked command statistics
	ChunkedCommandCount atomic.Uint64 // Commands that required chunking
	ChunkedFrameCount   atomic.Uint64 // Total chunks sent/received
	ChunkedByteTotal    atomic.Uint64 // Total bytes of chunked commands

	// Performance tracking
	TotalLatencyNs atomic.Uint64 // Cumulative command dispatch latency in nanoseconds
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Endpoint lifecycle
	StartTime atomic.Int64 // Endpoint start timestamp (UnixNano)
	StopTime  atomic.Int64 // Endpoint stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordCommand records a dispatched command, its size, latency, and
// whether it terminated the connection.
func (m *Metrics) RecordCommand(commandSize int, latencyNs uint64, fatal bool) {
	m.CommandCount.Add(1)
	if fatal {
		m.FatalCommandCount.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordBuilderResult records the outcome of a builder's GetResult.
func (m *Metrics) RecordBuilderResult(status interfaces.BuilderStatus) {
	switch status {
	case interfaces.BuilderStatusSuccess:
		m.BuilderSuccessCount.Add(1)
	case interfaces.BuilderStatusError:
		m.BuilderErrorCount.Add(1)
	default:
		m.BuilderUnknownCount.Add(1)
	}
}

// RecordMapRequest records the outcome of an asynchronous buffer map
// request.
func (m *Metrics) RecordMapRequest(status interfaces.MapStatus, isWrite bool) {
	success := status == interfaces.MapStatusSuccess
	switch {
	case isWrite && success:
		m.MapWriteSuccessCount.Add(1)
	case isWrite && !success:
		m.MapWriteErrorCount.Add(1)
	case !isWrite && success:
		m.MapReadSuccessCount.Add(1)
	default:
		m.MapReadErrorCount.Add(1)
	}
}

// RecordChunkedCommand records a command that was split into multiple
// chunked frames.
func (m *Metrics) RecordChunkedCommand(totalSize int, chunks int) {
	m.ChunkedCommandCount.Add(1)
	m.ChunkedFrameCount.Add(uint64(chunks))
	m.ChunkedByteTotal.Add(uint64(totalSize))
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the endpoint as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	CommandCount      uint64
	FatalCommandCount uint64

	BuilderSuccessCount uint64
	BuilderErrorCount   uint64
	BuilderUnknownCount uint64

	MapReadSuccessCount  uint64
	MapReadErrorCount    uint64
	MapWriteSuccessCount uint64
	MapWriteErrorCount   uint64

	ChunkedCommandCount uint64
	ChunkedFrameCount   uint64
	ChunkedByteTotal    uint64

	AvgLatencyNs     uint64
	UptimeNs         uint64
	LatencyHistogram [numLatencyBuckets]uint64
	CommandsPerSec   float64
	FatalRate        float64 // Percentage of commands that were fatal
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		CommandCount:         m.CommandCount.Load(),
		FatalCommandCount:    m.FatalCommandCount.Load(),
		BuilderSuccessCount:  m.BuilderSuccessCount.Load(),
		BuilderErrorCount:    m.BuilderErrorCount.Load(),
		BuilderUnknownCount:  m.BuilderUnknownCount.Load(),
		MapReadSuccessCount:  m.MapReadSuccessCount.Load(),
		MapReadErrorCount:    m.MapReadErrorCount.Load(),
		MapWriteSuccessCount: m.MapWriteSuccessCount.Load(),
		MapWriteErrorCount:   m.MapWriteErrorCount.Load(),
		ChunkedCommandCount:  m.ChunkedCommandCount.Load(),
		ChunkedFrameCount:    m.ChunkedFrameCount.Load(),
		ChunkedByteTotal:     m.ChunkedByteTotal.Load(),
	}

	if snap.CommandCount > 0 {
		snap.AvgLatencyNs = m.TotalLatencyNs.Load() / snap.CommandCount
		snap.FatalRate = float64(snap.FatalCommandCount) / float64(snap.CommandCount) * 100.0
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		snap.CommandsPerSec = float64(snap.CommandCount) / (float64(snap.UptimeNs) / 1e9)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	return snap
}

// Reset resets all metrics counters (useful for testing).
func (m *Metrics) Reset() {
	m.CommandCount.Store(0)
	m.FatalCommandCount.Store(0)
	m.BuilderSuccessCount.Store(0)
	m.BuilderErrorCount.Store(0)
	m.BuilderUnknownCount.Store(0)
	m.MapReadSuccessCount.Store(0)
	m.MapReadErrorCount.Store(0)
	m.MapWriteSuccessCount.Store(0)
	m.MapWriteErrorCount.Store(0)
	m.ChunkedCommandCount.Store(0)
	m.ChunkedFrameCount.Store(0)
	m.ChunkedByteTotal.Store(0)
	m.TotalLatencyNs.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// NoOpObserver is a no-op implementation of interfaces.Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveCommand(int, uint64, bool)              {}
func (NoOpObserver) ObserveBuilderResult(interfaces.BuilderStatus) {}
func (NoOpObserver) ObserveMapRequest(interfaces.MapStatus, bool)  {}
func (NoOpObserver) ObserveChunkedCommand(int, int)                {}

// MetricsObserver implements interfaces.Observer using the built-in
// Metrics. Safe for concurrent use, per the interface's contract.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveCommand(commandSize int, latencyNs uint64, fatal bool) {
	o.metrics.RecordCommand(commandSize, latencyNs, fatal)
}

func (o *MetricsObserver) ObserveBuilderResult(status interfaces.BuilderStatus) {
	o.metrics.RecordBuilderResult(status)
}

func (o *MetricsObserver) ObserveMapRequest(status interfaces.MapStatus, isWrite bool) {
	o.metrics.RecordMapRequest(status, isWrite)
}

func (o *MetricsObserver) ObserveChunkedCommand(totalSize int, chunks int) {
	o.metrics.RecordChunkedCommand(totalSize, chunks)
}

// Compile-time interface checks
var _ interfaces.Observer = (*MetricsObserver)(nil)
var _ interfaces.Observer = (*NoOpObserver)(nil)
