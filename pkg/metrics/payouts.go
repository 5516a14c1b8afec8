package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PayoutMetrics tracks batch settlement outcomes.
type PayoutMetrics struct {
	processed prometheus.Counter
	failed    prometheus.Counter
	skipped   prometheus.Counter
	batchTime prometheus.Histogram
}

// NewPayoutMetrics registers payout settlement metrics on the provided registerer.
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	if reg == nil {
		return &PayoutMetrics{}
	}
	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payouts_processed_total",
		Help: "Payout queue entries settled successfully.",
	})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payouts_failed_total",
		Help: "Payout queue entries that failed settlement.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payouts_skipped_total",
		Help: "Due entries skipped because another run already claimed them.",
	})
	batchTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payout_batch_duration_seconds",
		Help:    "Duration of a full ProcessDue batch run.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(processed, failed, skipped, batchTime)
	return &PayoutMetrics{
		processed: processed,
		failed:    failed,
		skipped:   skipped,
		batchTime: batchTime,
	}
}

// IncProcessed counts a settled entry.
func (p *PayoutMetrics) IncProcessed() {
	if p == nil || p.processed == nil {
		return
	}
	p.processed.Inc()
}

// IncFailed counts a failed entry.
func (p *PayoutMetrics) IncFailed() {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.Inc()
}

// IncSkipped counts an entry another run claimed first.
func (p *PayoutMetrics) IncSkipped() {
	if p == nil || p.skipped == nil {
		return
	}
	p.skipped.Inc()
}

// ObserveBatch records the duration of a batch run.
func (p *PayoutMetrics) ObserveBatch(duration time.Duration) {
	if p == nil || p.batchTime == nil {
		return
	}
	p.batchTime.Observe(duration.Seconds())
}
