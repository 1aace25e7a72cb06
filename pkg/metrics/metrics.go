// Package metrics provides performance tracking and observability for Nova
// using Prometheus metrics. It offers collectors for various performance
// indicators including throughput, latency, API request accounting, and
// system health.
//
// # Basic Usage
//
//	// Record processed records
//	metrics.RecordsProcessed.WithLabelValues("applovin", "csv", "success").Inc()
//
//	// Account for an upstream API call
//	metrics.APIRequests.WithLabelValues("applovin", "reports", "success").Inc()
//
//	// Track processing latency
//	timer := metrics.NewTimer("fetch_page")
//	fetchPage()
//	duration := timer.Stop()
//	metrics.ProcessingLatency.WithLabelValues("read", "applovin", "csv").Observe(float64(duration.Nanoseconds()))
//
// # Metric Types
//
// Counter: Monotonically increasing values (e.g., total records processed)
// Gauge: Values that can go up or down (e.g., active connections)
// Histogram: Distribution of values (e.g., latency percentiles)
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides a centralized metrics collection interface for components.
// It wraps Prometheus metrics and provides convenience methods for recording
// various performance indicators. Each component should create its own collector.
type Collector struct {
	name              string
	recordsProcessed  *prometheus.CounterVec
	processingLatency *prometheus.HistogramVec
	activeConnections *prometheus.GaugeVec
	queueDepth        *prometheus.GaugeVec
	throughput        *prometheus.GaugeVec
	startTime         time.Time
	mu                sync.RWMutex
}

// NewCollector creates a new metrics collector for a component.
// The name parameter identifies the component in metrics labels.
func NewCollector(name string) *Collector {
	return &Collector{
		name:              name,
		recordsProcessed:  RecordsProcessed,
		processingLatency: ProcessingLatency,
		activeConnections: ActiveConnections,
		queueDepth:        QueueDepth,
		throughput:        Throughput,
		startTime:         time.Now(),
	}
}

// GetAll returns all current metric values
func (c *Collector) GetAll() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"component":  c.name,
		"start_time": c.startTime,
		"uptime":     time.Since(c.startTime).Seconds(),
	}
}

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

var (
	// RecordsProcessed tracks the total number of records processed across all pipelines.
	// Labels: source (connector name), destination (connector name), status (success/failure)
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_records_processed_total",
			Help: "Total number of records processed",
		},
		[]string{"source", "destination", "status"},
	)

	// APIRequests tracks HTTP requests issued against upstream report APIs.
	// Labels: source (connector name), stream (report stream), outcome
	// (success, fatal, retriable)
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_api_requests_total",
			Help: "Total number of upstream API requests issued",
		},
		[]string{"source", "stream", "outcome"},
	)

	// PagesFetched tracks report pages successfully fetched per stream.
	// Labels: source, stream
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_pages_fetched_total",
			Help: "Total number of report pages fetched",
		},
		[]string{"source", "stream"},
	)

	// WindowsPlanned tracks reporting windows planned per extraction run.
	// Labels: source, stream
	WindowsPlanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nova_windows_planned_total",
			Help: "Total number of reporting windows planned",
		},
		[]string{"source", "stream"},
	)

	// ProcessingLatency tracks the distribution of processing latencies in nanoseconds.
	// The histogram buckets are optimized for sub-millisecond latency tracking.
	// Labels: operation (read/transform/write), source, destination
	ProcessingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "nova_processing_latency_nanoseconds",
			Help: "Processing latency in nanoseconds",
			Buckets: []float64{
				100,    // 100ns - Ultra-low latency operations
				1000,   // 1μs - Memory operations
				10000,  // 10μs - Fast I/O operations
				100000, // 100μs - Network operations
				1e6,    // 1ms - Standard processing
				1e7,    // 10ms - Complex transformations
				1e8,    // 100ms - Batch operations
				1e9,    // 1s - Large batch processing
			},
		},
		[]string{"operation", "source", "destination"},
	)

	// ActiveConnections tracks active connections
	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nova_active_connections",
			Help: "Number of active connections",
		},
		[]string{"type", "destination"},
	)

	// QueueDepth tracks queue depths
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nova_queue_depth",
			Help: "Current queue depth",
		},
		[]string{"queue_name"},
	)

	// Throughput tracks records per second
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nova_throughput_records_per_second",
			Help: "Current throughput in records per second",
		},
		[]string{"source", "destination"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop stops the timer and returns the elapsed duration since creation.
// The timer can be stopped multiple times, each returning the total
// elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks throughput (records per second) over time windows.
// It automatically calculates and reports throughput metrics when queried.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu          sync.Mutex
	count       int64
	lastReset   time.Time
	source      string
	destination string
}

// NewThroughputTracker creates a new throughput tracker for a pipeline.
// The source and destination parameters identify the pipeline endpoints
// and are used as metric labels.
func NewThroughputTracker(source, destination string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset:   time.Now(),
		source:      source,
		destination: destination,
	}
}

// Increment adds n to the record count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (records/second),
// updates the Prometheus metric, resets the counter, and returns
// the calculated throughput. Safe for concurrent use.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.source, t.destination).Set(throughput)

	return throughput
}
