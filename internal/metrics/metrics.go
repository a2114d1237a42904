package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification lifecycle and
// outbound email deliveries.
type Metrics struct {
	CodesIssued        prometheus.Counter
	Validations        *prometheus.CounterVec
	Deliveries         *prometheus.CounterVec
	DeliveryDuration   *prometheus.HistogramVec
	UserLookupDuration prometheus.Histogram
}

// New registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CodesIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "email_relay_verification_codes_issued_total",
			Help: "Total number of verification codes issued",
		}),
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "email_relay_verification_validations_total",
			Help: "Verification attempts by outcome",
		}, []string{"outcome"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "email_relay_deliveries_total",
			Help: "Outbound emails by provider, template and result",
		}, []string{"provider", "template", "result"}),
		DeliveryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "email_relay_delivery_duration_seconds",
			Help:    "Latency of email provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		UserLookupDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "email_relay_user_lookup_duration_seconds",
			Help:    "Latency of user directory lookups (password reset path)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) CodeIssued() {
	m.CodesIssued.Inc()
}

func (m *Metrics) ValidationOutcome(outcome string) {
	m.Validations.WithLabelValues(outcome).Inc()
}

// ObserveDelivery records one provider call started at start.
func (m *Metrics) ObserveDelivery(provider, template string, err error, start time.Time) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.Deliveries.WithLabelValues(provider, template, result).Inc()
	m.DeliveryDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// ObserveUserLookup records the duration of a user directory call.
func (m *Metrics) ObserveUserLookup(start time.Time) {
	m.UserLookupDuration.Observe(time.Since(start).Seconds())
}
