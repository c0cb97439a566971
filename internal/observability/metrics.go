package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for requests and sweep jobs.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	sweepRuns      map[string]int64
	sweepProcessed map[string]int64
	assignments    int64
	escalations    int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		sweepRuns:      make(map[string]int64),
		sweepProcessed: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordSweep tracks a completed sweep job run and its processed count.
func (m *Metrics) RecordSweep(job string, processed int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepRuns[job]++
	m.sweepProcessed[job] += int64(processed)
}

// RecordAssignment counts a successful auto-assignment.
func (m *Metrics) RecordAssignment() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments++
}

// RecordEscalation counts a priority escalation.
func (m *Metrics) RecordEscalation() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalations++
}

// Snapshot returns a copy of the counters for the dashboard endpoint.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{
		"assignments": m.assignments,
		"escalations": m.escalations,
	}
	for job, runs := range m.sweepRuns {
		out["sweep_runs_"+job] = runs
	}
	for job, processed := range m.sweepProcessed {
		out["sweep_processed_"+job] = processed
	}
	return out
}
