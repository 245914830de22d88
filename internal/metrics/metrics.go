package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes price check metrics to Prometheus. A nil *Recorder is a no-op.
type Recorder struct {
	checksTotal        *prometheus.CounterVec
	fetchAttempts      prometheus.Counter
	lastPrice          *prometheus.GaugeVec
	notificationsTotal *prometheus.CounterVec
	persistErrors      prometheus.Counter
	runsTotal          *prometheus.CounterVec
	runDuration        prometheus.Histogram
}

// New registers the metrics with reg. A nil reg creates unregistered metrics.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		checksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_checks_total",
				Help: "Price checks by outcome",
			},
			[]string{"outcome"},
		),
		fetchAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "pricewatch_fetch_attempts_total",
			Help: "Scrape attempts made, including retries",
		}),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricewatch_last_price",
				Help: "Last observed price per domain",
			},
			[]string{"domain"},
		),
		notificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_notifications_total",
				Help: "Notifications by channel and result",
			},
			[]string{"channel", "result"},
		),
		persistErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "pricewatch_persist_errors_total",
			Help: "Failed attempts to save the price history",
		}),
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_runs_total",
				Help: "Completed runs by status",
			},
			[]string{"status"},
		),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricewatch_run_duration_seconds",
			Help:    "Wall time of a full pass over all domains",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}),
	}
}

func (r *Recorder) RecordCheck(outcome string, attempts int) {
	if r == nil {
		return
	}
	r.checksTotal.WithLabelValues(outcome).Inc()
	r.fetchAttempts.Add(float64(attempts))
}

func (r *Recorder) RecordLastPrice(domain string, price float64) {
	if r == nil {
		return
	}
	r.lastPrice.WithLabelValues(domain).Set(price)
}

func (r *Recorder) RecordNotification(channel, result string) {
	if r == nil {
		return
	}
	r.notificationsTotal.WithLabelValues(channel, result).Inc()
}

func (r *Recorder) RecordPersistError() {
	if r == nil {
		return
	}
	r.persistErrors.Inc()
}

func (r *Recorder) RecordRun(status string, seconds float64) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(seconds)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
