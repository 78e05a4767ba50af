package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for the appointment lifecycle.
type SchedulingMetrics struct {
	appointmentsCreated   *prometheus.CounterVec
	statusTransitions     *prometheus.CounterVec
	eligibilityRejections *prometheus.CounterVec
	donationsRecorded     prometheus.Counter
	campaignIncrementErrs prometheus.Counter
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		appointmentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hemovida",
			Subsystem: "scheduling",
			Name:      "appointments_created_total",
			Help:      "Appointments created, by donation type",
		}, []string{"donation_type"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hemovida",
			Subsystem: "scheduling",
			Name:      "status_transitions_total",
			Help:      "Successful appointment status transitions, by target status",
		}, []string{"to"}),
		eligibilityRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hemovida",
			Subsystem: "scheduling",
			Name:      "eligibility_rejections_total",
			Help:      "Booking requests rejected by an eligibility rule",
		}, []string{"rule"}),
		donationsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hemovida",
			Subsystem: "scheduling",
			Name:      "donations_recorded_total",
			Help:      "Donation history records created",
		}),
		campaignIncrementErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hemovida",
			Subsystem: "scheduling",
			Name:      "campaign_increment_errors_total",
			Help:      "Campaign progress increments that failed after a recorded donation",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.appointmentsCreated,
		m.statusTransitions,
		m.eligibilityRejections,
		m.donationsRecorded,
		m.campaignIncrementErrs,
	)
	return m
}

func (m *SchedulingMetrics) ObserveCreated(donationType string) {
	if m == nil {
		return
	}
	m.appointmentsCreated.WithLabelValues(donationType).Inc()
}

func (m *SchedulingMetrics) ObserveTransition(to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(to).Inc()
}

func (m *SchedulingMetrics) ObserveRejection(rule string) {
	if m == nil {
		return
	}
	m.eligibilityRejections.WithLabelValues(rule).Inc()
}

func (m *SchedulingMetrics) ObserveDonationRecorded() {
	if m == nil {
		return
	}
	m.donationsRecorded.Inc()
}

func (m *SchedulingMetrics) ObserveCampaignIncrementError() {
	if m == nil {
		return
	}
	m.campaignIncrementErrs.Inc()
}

// HTTPMetrics tracks request latency at the router.
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hemovida",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.duration)
	return m
}

func (m *HTTPMetrics) ObserveRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(method, path, status).Observe(seconds)
}
