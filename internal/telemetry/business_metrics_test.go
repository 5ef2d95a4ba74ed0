package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBusinessMetrics_Record(t *testing.T) {
	m := NewBusinessMetrics("test", prometheus.NewRegistry())

	m.InvoiceCreated("Pending", decimal.RequireFromString("107.25"))
	m.InvoiceCreated("Pending", decimal.RequireFromString("10"))
	m.PaymentRecorded("Cash", decimal.RequireFromString("12.34"))
	m.OverdueMarked(3)
	m.OverdueMarked(0)
	m.EmailDelivered("invoice", nil)
	m.EmailDelivered("invoice", errors.New("boom"))
	m.Webhook("stripe", "checkout.session.completed", time.Now(), "")
	m.Webhook("stripe", "customer.subscription.updated", time.Now(), "handler")
	m.JobFinished("email:invoice", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.InvoicesCreated.WithLabelValues("Pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsRecorded.WithLabelValues("Cash")))
	assert.InDelta(t, 1234.0, testutil.ToFloat64(m.PaymentAmount.WithLabelValues("Cash")), 0.001)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.InvoicesMarkedOverdue))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailSent.WithLabelValues("invoice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailFailed.WithLabelValues("invoice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookProcessed.WithLabelValues("stripe", "checkout.session.completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookFailed.WithLabelValues("stripe", "customer.subscription.updated", "handler")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues("email:invoice")))
}

func TestBusinessMetrics_NilSafe(t *testing.T) {
	var m *BusinessMetrics

	assert.NotPanics(t, func() {
		m.InvoiceCreated("Draft", decimal.Zero)
		m.PaymentRecorded("Other", decimal.Zero)
		m.OverdueMarked(1)
		m.DocumentRendered(nil)
		m.CheckoutSessionCreated("pro")
		m.SubscriptionChanged("active")
		m.Webhook("stripe", "x", time.Now(), "")
		m.JobEnqueued("x")
		m.JobFinished("x", time.Now(), nil)
		m.EmailDelivered("x", nil)
		m.ObserveStripe("x")()
	})
}
