package wbem

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OpStats is a per-operation snapshot of the statistics described in
// spec §4.7: count, total/min/max server time, and total request/response
// body lengths.
type OpStats struct {
	Count         int64
	TotalTime     time.Duration
	MinTime       time.Duration
	MaxTime       time.Duration
	RequestBytes  int64
	ResponseBytes int64
}

// statsRecorder accumulates OpStats keyed by operation name. It is safe
// for concurrent use: the teacher's clog.Clog gates its work behind an
// atomic enable flag; statsRecorder does the same, plus a mutex around
// the map since (unlike a log line) a stats update is a compound
// read-modify-write.
type statsRecorder struct {
	enabled uint32
	mu      sync.Mutex
	byOp    map[string]*OpStats

	promCount    *prometheus.CounterVec
	promDuration *prometheus.HistogramVec
	promBytes    *prometheus.CounterVec
}

func newStatsRecorder(enabled bool) *statsRecorder {
	r := &statsRecorder{byOp: make(map[string]*OpStats)}
	if enabled {
		r.enable()
	}
	r.promCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wbem_client",
		Name:      "operations_total",
		Help:      "Number of CIM operations issued, by operation name.",
	}, []string{"operation"})
	r.promDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wbem_client",
		Name:      "operation_duration_seconds",
		Help:      "CIM operation server time, by operation name.",
	}, []string{"operation"})
	r.promBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wbem_client",
		Name:      "operation_bytes_total",
		Help:      "CIM request/response body bytes, by operation name and direction.",
	}, []string{"operation", "direction"})
	return r
}

// Register adds the recorder's Prometheus collectors to reg. Safe to
// call even when stats are disabled: collectors simply stay at zero.
func (r *statsRecorder) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{r.promCount, r.promDuration, r.promBytes} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *statsRecorder) enable()  { atomic.StoreUint32(&r.enabled, 1) }
func (r *statsRecorder) disable() { atomic.StoreUint32(&r.enabled, 0) }
func (r *statsRecorder) isEnabled() bool { return atomic.LoadUint32(&r.enabled) == 1 }

// record folds one completed operation's measurements into the recorder.
// It must not add measurable overhead when disabled, per spec §4.7: the
// atomic flag check is the only work done on the disabled path.
func (r *statsRecorder) record(op string, elapsed time.Duration, reqBytes, respBytes int) {
	if !r.isEnabled() {
		return
	}
	r.promCount.WithLabelValues(op).Inc()
	r.promDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	r.promBytes.WithLabelValues(op, "request").Add(float64(reqBytes))
	r.promBytes.WithLabelValues(op, "response").Add(float64(respBytes))

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byOp[op]
	if !ok {
		s = &OpStats{MinTime: elapsed, MaxTime: elapsed}
		r.byOp[op] = s
	}
	s.Count++
	s.TotalTime += elapsed
	if elapsed < s.MinTime {
		s.MinTime = elapsed
	}
	if elapsed > s.MaxTime {
		s.MaxTime = elapsed
	}
	s.RequestBytes += int64(reqBytes)
	s.ResponseBytes += int64(respBytes)
}

// Snapshot returns a copy of the current per-operation statistics.
func (r *statsRecorder) Snapshot() map[string]OpStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]OpStats, len(r.byOp))
	for op, s := range r.byOp {
		out[op] = *s
	}
	return out
}
