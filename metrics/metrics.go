// Package metrics records compaction progress as Prometheus metrics and
// writes them in the text exposition format for node_exporter's textfile
// collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/infodancer/mailcompact/maildir"
)

const namespace = "mailcompact"

// Recorder implements mailcompact.Observer on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	mailboxes    prometheus.Counter
	compressed   prometheus.Counter
	verbatim     prometheus.Counter
	mismatched   prometheus.Counter
	replaced     prometheus.Counter
	bytesRead    prometheus.Counter
	bytesWritten prometheus.Counter
	failures     *prometheus.CounterVec
	lockWait     prometheus.Histogram
	lastRun      prometheus.Gauge
}

// NewRecorder creates a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		mailboxes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailboxes_scanned_total",
			Help:      "Maildirs visited.",
		}),
		compressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_compressed_total",
			Help:      "Messages staged as compressed copies.",
		}),
		verbatim: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_verbatim_total",
			Help:      "Messages that were already gzip and copied unchanged.",
		}),
		mismatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "size_mismatches_total",
			Help:      "Messages whose S= size disagreed with the file size.",
		}),
		replaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_replaced_total",
			Help:      "Originals replaced by compressed copies.",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_read_total",
			Help:      "Size of compressed originals.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Size of staged compressed copies.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_failures_total",
			Help:      "Recorded failures by pipeline stage.",
		}, []string{"stage"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lock_wait_seconds",
			Help:      "Time spent acquiring mailbox locks.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 120},
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	r.registry.MustRegister(
		r.mailboxes, r.compressed, r.verbatim, r.mismatched, r.replaced,
		r.bytesRead, r.bytesWritten, r.failures, r.lockWait, r.lastRun,
	)
	return r
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// MailboxScanned implements mailcompact.Observer.
func (r *Recorder) MailboxScanned(*maildir.Maildir) {
	r.mailboxes.Inc()
}

// FileCompressed implements mailcompact.Observer.
func (r *Recorder) FileCompressed(job maildir.Job) {
	r.compressed.Inc()
	if job.Verbatim {
		r.verbatim.Inc()
	}
	if job.SizeMismatch {
		r.mismatched.Inc()
	}
	r.bytesRead.Add(float64(job.Source.Size))
	r.bytesWritten.Add(float64(job.Written))
}

// FilesReplaced implements mailcompact.Observer.
func (r *Recorder) FilesReplaced(n int) {
	r.replaced.Add(float64(n))
}

// JobFailed implements mailcompact.Observer.
func (r *Recorder) JobFailed(stage string) {
	r.failures.WithLabelValues(stage).Inc()
}

// LockAcquired implements mailcompact.Observer.
func (r *Recorder) LockAcquired(wait time.Duration) {
	r.lockWait.Observe(wait.Seconds())
}

// WriteTextfile stamps the run time and writes all metrics to path. The
// file is written to a temporary name and renamed, so collectors never see
// a partial file.
func (r *Recorder) WriteTextfile(path string, finished time.Time) error {
	r.lastRun.Set(float64(finished.Unix()))
	return prometheus.WriteToTextfile(path, r.registry)
}
