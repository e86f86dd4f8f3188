package pagestore

import (
	"sync"
	"sync/atomic"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Counters holds the observability surface for a Sink or Source, following
// the teacher's pattern of counting bytes/pages atomically and recording
// latencies into a prometheus.Histogram (see wal.Options.FsyncLatency).
// Counters are updated only on success paths, with the exception of
// NRead/NReadV, which count attempts.
type Counters struct {
	NPageCommitted        atomic.Int64
	NPagePopulated        atomic.Int64
	NPageLoadedDirect     atomic.Int64
	NPageLoadedPrefetched atomic.Int64
	NClusterLoaded        atomic.Int64
	NRead                 atomic.Int64
	NReadV                atomic.Int64
	NWrite                atomic.Int64
	NWriteV               atomic.Int64

	SzZip          atomic.Int64
	SzUnzip        atomic.Int64
	SzWritePayload atomic.Int64
	SzReadPayload  atomic.Int64

	TimeZip   prometheus.Histogram
	TimeWrite prometheus.Histogram
	TimeRead  prometheus.Histogram
	TimeUnzip prometheus.Histogram

	// microsHist gives a higher-resolution, queryable view of the same
	// latencies the prometheus histograms record, mirroring the teacher's
	// habit of pairing a coarse exported histogram with a finer internal
	// one (see tool/manifest.go's use of hdrhistogram-go).
	mu         sync.Mutex
	microsHist *hdrhistogram.Histogram
}

// NewCounters returns a Counters instance whose prometheus histograms are
// named under the given subsystem (e.g. "sink" or "source"). The histograms
// are not registered with any prometheus registry.
func NewCounters(subsystem string) *Counters {
	mk := func(name string) prometheus.Histogram {
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pagestore",
			Subsystem: subsystem,
			Name:      name,
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 20),
		})
	}
	return &Counters{
		TimeZip:    mk("zip_latency_seconds"),
		TimeWrite:  mk("write_latency_seconds"),
		TimeRead:   mk("read_latency_seconds"),
		TimeUnzip:  mk("unzip_latency_seconds"),
		microsHist: hdrhistogram.New(1, 10_000_000, 3),
	}
}

func (c *Counters) recordMicros(d time.Duration) {
	c.mu.Lock()
	_ = c.microsHist.RecordValue(d.Microseconds())
	c.mu.Unlock()
}

// stopwatch is a running timer captured at construction and settled by
// calling stop, mirroring RNTupleAtomicTimer's construct-to-accumulate
// lifetime in the original design.
type stopwatch struct {
	start  time.Time
	metric prometheus.Histogram
	record func(time.Duration)
}

func (c *Counters) startTimer(metric prometheus.Histogram) stopwatch {
	return stopwatch{start: time.Now(), metric: metric, record: c.recordMicros}
}

func (s stopwatch) stop() {
	d := time.Since(s.start)
	s.metric.Observe(d.Seconds())
	s.record(d)
}
