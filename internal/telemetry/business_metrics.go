package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// BusinessMetrics holds Prometheus metrics for business-level observability.
// All recording methods are safe on a nil receiver so services can run
// without metrics in tests.
type BusinessMetrics struct {
	// Invoicing
	InvoicesCreated       *prometheus.CounterVec
	InvoiceValue          *prometheus.HistogramVec
	InvoicesMarkedOverdue prometheus.Counter
	DocumentsRendered     *prometheus.CounterVec

	// Payments
	PaymentsRecorded *prometheus.CounterVec
	PaymentAmount    *prometheus.CounterVec

	// Subscriptions
	CheckoutSessions     *prometheus.CounterVec
	SubscriptionsChanged *prometheus.CounterVec

	// Webhooks
	WebhookReceived  *prometheus.CounterVec
	WebhookProcessed *prometheus.CounterVec
	WebhookFailed    *prometheus.CounterVec
	WebhookLatency   *prometheus.HistogramVec

	// Background jobs
	JobsEnqueued  *prometheus.CounterVec
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec

	// Email delivery
	EmailSent   *prometheus.CounterVec
	EmailFailed *prometheus.CounterVec

	// External API performance
	StripeAPILatency *prometheus.HistogramVec
}

// NewBusinessMetrics creates the business metrics and registers them with
// reg. A nil reg uses the default registerer.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "bizznex"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	f := promauto.With(reg)
	subsystem := "business"

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	}

	return &BusinessMetrics{
		InvoicesCreated: counter("invoices_created_total", "Total invoices created", "status"),
		InvoiceValue: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invoice_value_dollars",
			Help:      "Grand total of created invoices",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"status"}),
		InvoicesMarkedOverdue: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invoices_marked_overdue_total",
			Help:      "Total invoices moved to Overdue by the scheduler",
		}),
		DocumentsRendered: counter("documents_rendered_total", "Invoice documents rendered", "outcome"), // outcome: ok, error

		PaymentsRecorded: counter("payments_recorded_total", "Total payments recorded against invoices", "method"),
		PaymentAmount:    counter("payment_amount_cents", "Total payment amount in cents", "method"),

		CheckoutSessions:     counter("checkout_sessions_total", "Plan checkout sessions created", "plan"),
		SubscriptionsChanged: counter("subscriptions_changed_total", "Subscription state changes applied from webhooks", "status"),

		WebhookReceived:  counter("webhooks_received_total", "Total webhooks received", "provider", "event_type"),
		WebhookProcessed: counter("webhooks_processed_total", "Total webhooks processed", "provider", "event_type"),
		WebhookFailed:    counter("webhooks_failed_total", "Total webhook processing failures", "provider", "event_type", "error_type"),
		WebhookLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "webhook_duration_seconds",
			Help:      "Webhook handling duration",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"provider", "event_type"}),

		JobsEnqueued:  counter("jobs_enqueued_total", "Total background jobs enqueued", "job_type"),
		JobsProcessed: counter("jobs_processed_total", "Total background jobs completed", "job_type"),
		JobsFailed:    counter("jobs_failed_total", "Total background job failures", "job_type", "error_type"),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "job_duration_seconds",
			Help:      "Background job execution duration",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job_type"}),

		EmailSent:   counter("emails_sent_total", "Total emails sent by type", "email_type"),
		EmailFailed: counter("emails_failed_total", "Total email delivery failures", "email_type"),

		StripeAPILatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stripe_api_duration_seconds",
			Help:      "Stripe API call duration",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
	}
}

// Business is the process-wide instance set by InitBusinessMetrics.
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace, nil)
	return Business
}

func (m *BusinessMetrics) InvoiceCreated(status string, total decimal.Decimal) {
	if m == nil {
		return
	}
	m.InvoicesCreated.WithLabelValues(status).Inc()
	m.InvoiceValue.WithLabelValues(status).Observe(total.InexactFloat64())
}

func (m *BusinessMetrics) PaymentRecorded(method string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.PaymentsRecorded.WithLabelValues(method).Inc()
	m.PaymentAmount.WithLabelValues(method).Add(amount.Shift(2).InexactFloat64())
}

func (m *BusinessMetrics) OverdueMarked(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.InvoicesMarkedOverdue.Add(float64(n))
}

func (m *BusinessMetrics) DocumentRendered(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.DocumentsRendered.WithLabelValues(outcome).Inc()
}

func (m *BusinessMetrics) CheckoutSessionCreated(plan string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(plan).Inc()
}

func (m *BusinessMetrics) SubscriptionChanged(status string) {
	if m == nil {
		return
	}
	m.SubscriptionsChanged.WithLabelValues(status).Inc()
}

// Webhook records receipt and the outcome of one webhook delivery.
func (m *BusinessMetrics) Webhook(provider, eventType string, started time.Time, errorType string) {
	if m == nil {
		return
	}
	m.WebhookReceived.WithLabelValues(provider, eventType).Inc()
	m.WebhookLatency.WithLabelValues(provider, eventType).Observe(time.Since(started).Seconds())
	if errorType != "" {
		m.WebhookFailed.WithLabelValues(provider, eventType, errorType).Inc()
		return
	}
	m.WebhookProcessed.WithLabelValues(provider, eventType).Inc()
}

func (m *BusinessMetrics) JobEnqueued(jobType string) {
	if m == nil {
		return
	}
	m.JobsEnqueued.WithLabelValues(jobType).Inc()
}

// JobFinished records the outcome and duration of a processed job.
func (m *BusinessMetrics) JobFinished(jobType string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(jobType).Observe(time.Since(started).Seconds())
	if err != nil {
		m.JobsFailed.WithLabelValues(jobType, "handler").Inc()
		return
	}
	m.JobsProcessed.WithLabelValues(jobType).Inc()
}

func (m *BusinessMetrics) EmailDelivered(emailType string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.EmailFailed.WithLabelValues(emailType).Inc()
		return
	}
	m.EmailSent.WithLabelValues(emailType).Inc()
}

// ObserveStripe times a Stripe API call. Use as
// defer m.ObserveStripe("checkout_session")().
func (m *BusinessMetrics) ObserveStripe(operation string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.StripeAPILatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
