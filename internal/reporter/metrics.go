package reporter

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"

	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// Metrics tracks send outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	sends      *prometheus.CounterVec
	latency    prometheus.Gauge
	lastStatus prometheus.Gauge
	duration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with registerer. Collectors that are
// already registered are reused.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statistics",
			Name:      "sends_total",
			Help:      "Telemetry sends by outcome and trigger",
		}, []string{"outcome", "trigger"}),
		latency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "statistics",
			Name:      "ping_latency_milliseconds",
			Help:      "Last measured median ping latency",
		}),
		lastStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "statistics",
			Name:      "last_status_code",
			Help:      "HTTP status of the last completed send, 0 when it failed",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "statistics",
			Name:      "send_duration_seconds",
			Help:      "Duration of a full measure, build and dispatch cycle",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	var errs error

	metrics.sends = register(registerer, metrics.sends, &errs)
	metrics.latency = register(registerer, metrics.latency, &errs)
	metrics.lastStatus = register(registerer, metrics.lastStatus, &errs)
	metrics.duration = register(registerer, metrics.duration, &errs)

	if errs != nil {
		return nil, errs
	}

	return metrics, nil
}

func register[T prometheus.Collector](registerer prometheus.Registerer, collector T, errs *error) T {
	if errRegister := registerer.Register(collector); errRegister != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(errRegister, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}

		*errs = errors.Join(*errs, errRegister)
	}

	return collector
}

func (m *Metrics) observe(trigger string, report Report) {
	if m == nil {
		return
	}

	m.duration.Observe(report.Duration.Seconds())

	outcome := outcomeFailed

	switch {
	case report.Err != nil:
		m.lastStatus.Set(0)
	case report.Result.Accepted():
		outcome = outcomeAccepted

		m.lastStatus.Set(float64(report.Result.StatusCode))
	default:
		outcome = outcomeRejected

		m.lastStatus.Set(float64(report.Result.StatusCode))
	}

	if report.Measured {
		m.latency.Set(float64(report.LatencyMs))
	}

	m.sends.With(prometheus.Labels{"outcome": outcome, "trigger": trigger}).Inc()
}
