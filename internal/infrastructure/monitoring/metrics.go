package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	LoansCreatedTotal   prometheus.Counter
	PaymentsTotal       *prometheus.CounterVec
	OverdueLoansFlagged prometheus.Counter
	OverdueSweepSeconds prometheus.Histogram
	EventsPublished     *prometheus.CounterVec
	LoginAttemptsTotal  *prometheus.CounterVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_tracker_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		LoansCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loan_tracker_loans_created_total",
				Help: "Total number of loans created.",
			},
		),
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_tracker_payments_total",
				Help: "Total number of payment applications by payment type and outcome.",
			},
			[]string{"type", "status"},
		),
		OverdueLoansFlagged: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loan_tracker_overdue_loans_flagged_total",
				Help: "Total number of loans changed by overdue detection.",
			},
		),
		OverdueSweepSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "loan_tracker_overdue_sweep_duration_seconds",
				Help:    "Duration of overdue sweeps.",
				Buckets: prometheus.DefBuckets,
			},
		),
		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_tracker_events_published_total",
				Help: "Domain events handed to the broker, by routing key and outcome.",
			},
			[]string{"routing_key", "status"},
		),
		LoginAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_tracker_login_attempts_total",
				Help: "Login attempts by outcome.",
			},
			[]string{"status"},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordLoanCreated() {
	Business.LoansCreatedTotal.Inc()
}

func RecordPayment(paymentType, status string) {
	Business.PaymentsTotal.WithLabelValues(paymentType, status).Inc()
}

func RecordOverdueSweep(flagged int, duration time.Duration) {
	Business.OverdueLoansFlagged.Add(float64(flagged))
	Business.OverdueSweepSeconds.Observe(duration.Seconds())
}

func RecordEventPublished(routingKey, status string) {
	Business.EventsPublished.WithLabelValues(routingKey, status).Inc()
}

func RecordLoginAttempt(status string) {
	Business.LoginAttemptsTotal.WithLabelValues(status).Inc()
}
