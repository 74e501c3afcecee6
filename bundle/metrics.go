package bundle

import (
	"net/http"
	"time"

	"github.com/evmstate/bundle/metrics"
)

// bundleMetricsSet holds the process-wide counters for bundle activity,
// registered once against metrics.DefaultRegistry so they show up alongside
// every other subsystem's metrics in a Snapshot().
type bundleMetricsSet struct {
	blocksApplied     *metrics.Counter
	blocksReverted    *metrics.Counter
	transitionsFolded *metrics.Counter
	revertsRecorded   *metrics.Counter
	foldRate          *metrics.Meter
}

var bundleMetrics = bundleMetricsSet{
	blocksApplied:     metrics.DefaultRegistry.Counter("bundle.blocks_applied"),
	blocksReverted:    metrics.DefaultRegistry.Counter("bundle.blocks_reverted"),
	transitionsFolded: metrics.DefaultRegistry.Counter("bundle.transitions_folded"),
	revertsRecorded:   metrics.DefaultRegistry.Counter("bundle.reverts_recorded"),
	foldRate:          metrics.NewMeter(),
}

// FoldRate reports the 1-, 5-, and 15-minute moving average of transitions
// folded per second, for operators watching a long-running aggregator.
func FoldRate() (rate1, rate5, rate15 float64) {
	return bundleMetrics.foldRate.Rate1(), bundleMetrics.foldRate.Rate5(), bundleMetrics.foldRate.Rate15()
}

// MetricsHandler returns an http.Handler serving every bundle and state
// metric in Prometheus text exposition format, suitable for mounting at
// /metrics in a host process embedding this module.
func MetricsHandler() http.Handler {
	cfg := metrics.DefaultPrometheusConfig()
	cfg.Namespace = ""
	exporter := metrics.NewPrometheusExporter(metrics.DefaultRegistry, cfg)
	return exporter.Handler()
}

// logReportBackend adapts the module logger to metrics.ReportBackend, for
// hosts that want periodic fold-rate summaries in their log stream instead
// of (or in addition to) a Prometheus scrape.
type logReportBackend struct{}

func (logReportBackend) Report(snapshot map[string]float64) error {
	args := make([]any, 0, len(snapshot)*2)
	for name, value := range snapshot {
		args = append(args, name, value)
	}
	bundleLog.Info("periodic metrics report", args...)
	return nil
}

// StartPeriodicReporting records the current fold rate and blocks-applied
// count every interval and logs a summary line, until the returned stop
// function is called.
func StartPeriodicReporting(interval time.Duration) (stop func()) {
	reporter := metrics.NewMetricsReporter(interval)
	reporter.RegisterBackend("log", logReportBackend{})

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				rate1, rate5, rate15 := FoldRate()
				reporter.RecordMetric("bundle.fold_rate_1m", rate1)
				reporter.RecordMetric("bundle.fold_rate_5m", rate5)
				reporter.RecordMetric("bundle.fold_rate_15m", rate15)
				reporter.RecordMetric("bundle.blocks_applied", float64(bundleMetrics.blocksApplied.Value()))
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	reporter.Start()

	return func() {
		close(done)
		reporter.Stop()
	}
}
