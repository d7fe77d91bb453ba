package httpclient

import (
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// QueryParams narrows a StatsHub query to a subset of recorded calls.
// A zero-valued field means "don't filter on this dimension".
type QueryParams struct {
	Endpoint string
	Window   time.Duration
}

// EndpointStats is a point-in-time snapshot of one endpoint's request
// outcomes and latency distribution.
type EndpointStats struct {
	Endpoint     string
	Total        uint64
	Succeeded    uint64
	Failed       uint64
	RetriedCalls uint64
	P50          time.Duration
	P90          time.Duration
	P99          time.Duration
	Max          time.Duration
}

// statsBucket is one slot in the rolling window: counters plus a histogram
// covering calls whose RequestStart fell within this bucket's minute.
type statsBucket struct {
	mu        sync.Mutex
	start     time.Time
	total     uint64
	succeeded uint64
	failed    uint64
	retried   uint64
	hist      *hdrhistogram.Histogram
}

func newStatsBucket(start time.Time) *statsBucket {
	return &statsBucket{
		start: start,
		// 1ms floor, 1 minute ceiling, 3 significant figures - enough
		// resolution for both fast in-process calls and slow upstreams.
		hist: hdrhistogram.New(1, 60*1000, 3),
	}
}

func (b *statsBucket) record(success bool, retried bool, latency time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total++
	if success {
		b.succeeded++
	} else {
		b.failed++
	}
	if retried {
		b.retried++
	}
	_ = b.hist.RecordValue(latency.Milliseconds())
}

// StatsHub records every pipeline call's outcome and latency into a 60-slot
// rolling ring buffer, one bucket per minute, each backed by its own
// hdrhistogram.Histogram. Query() merges whatever buckets fall inside the
// requested window; Reset() drops everything accumulated so far.
type StatsHub struct {
	mu       sync.Mutex
	buckets  map[string]map[int64]*statsBucket // endpoint -> minute epoch -> bucket
	capacity int
}

// NewStatsHub creates an empty StatsHub. capacity bounds how many one-minute
// buckets are kept per endpoint before the oldest is evicted; 60 covers a
// rolling hour.
func NewStatsHub(capacity int) *StatsHub {
	if capacity <= 0 {
		capacity = 60
	}
	return &StatsHub{
		buckets:  make(map[string]map[int64]*statsBucket),
		capacity: capacity,
	}
}

// Record folds the outcome of one completed call (all attempts) into the
// hub. endpoint is typically "METHOD host/path"; callers control the
// granularity.
func (h *StatsHub) Record(endpoint string, success bool, retried bool, latency time.Duration, at time.Time) {
	minute := at.Truncate(time.Minute).Unix()

	h.mu.Lock()
	perEndpoint, ok := h.buckets[endpoint]
	if !ok {
		perEndpoint = make(map[int64]*statsBucket)
		h.buckets[endpoint] = perEndpoint
	}
	bucket, ok := perEndpoint[minute]
	if !ok {
		bucket = newStatsBucket(at.Truncate(time.Minute))
		perEndpoint[minute] = bucket
		h.evictLocked(perEndpoint)
	}
	h.mu.Unlock()

	bucket.record(success, retried, latency)
}

// evictLocked drops the oldest bucket once an endpoint's bucket count
// exceeds capacity. Must be called with h.mu held.
func (h *StatsHub) evictLocked(perEndpoint map[int64]*statsBucket) {
	if len(perEndpoint) <= h.capacity {
		return
	}
	var oldest int64
	first := true
	for minute := range perEndpoint {
		if first || minute < oldest {
			oldest = minute
			first = false
		}
	}
	delete(perEndpoint, oldest)
}

// Query merges recorded buckets matching params into a single snapshot per
// matching endpoint. An empty Endpoint matches all endpoints, each reported
// separately.
func (h *StatsHub) Query(params QueryParams) []EndpointStats {
	h.mu.Lock()
	endpoints := make(map[string]map[int64]*statsBucket, len(h.buckets))
	for ep, buckets := range h.buckets {
		if params.Endpoint != "" && ep != params.Endpoint {
			continue
		}
		copyBuckets := make(map[int64]*statsBucket, len(buckets))
		for m, b := range buckets {
			copyBuckets[m] = b
		}
		endpoints[ep] = copyBuckets
	}
	h.mu.Unlock()

	cutoff := time.Time{}
	if params.Window > 0 {
		cutoff = time.Now().Add(-params.Window)
	}

	results := make([]EndpointStats, 0, len(endpoints))
	for ep, buckets := range endpoints {
		merged := hdrhistogram.New(1, 60*1000, 3)
		var total, succeeded, failed, retried uint64

		for _, b := range buckets {
			b.mu.Lock()
			if !cutoff.IsZero() && b.start.Before(cutoff) {
				b.mu.Unlock()
				continue
			}
			total += b.total
			succeeded += b.succeeded
			failed += b.failed
			retried += b.retried
			merged.Merge(b.hist)
			b.mu.Unlock()
		}

		if total == 0 {
			continue
		}

		results = append(results, EndpointStats{
			Endpoint:     ep,
			Total:        total,
			Succeeded:    succeeded,
			Failed:       failed,
			RetriedCalls: retried,
			P50:          time.Duration(merged.ValueAtQuantile(50)) * time.Millisecond,
			P90:          time.Duration(merged.ValueAtQuantile(90)) * time.Millisecond,
			P99:          time.Duration(merged.ValueAtQuantile(99)) * time.Millisecond,
			Max:          time.Duration(merged.Max()) * time.Millisecond,
		})
	}

	return results
}

// Reset drops all recorded buckets.
func (h *StatsHub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buckets = make(map[string]map[int64]*statsBucket)
}
