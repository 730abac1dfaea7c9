package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Reservation("reserved")
	m.Reservation("reserved")
	m.Reservation("unavailable")
	m.Release()
	m.Swept(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reservations.WithLabelValues("reserved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reservations.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.releases))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweptSessions))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Reservation("reserved")
		m.Release()
		m.Checkout("paid")
		m.Timeout("cart")
		m.Swept(1)
		m.Notification("order_receipt", "sent")
		m.HTTPRequest(http.MethodGet, "/cart", "200", time.Millisecond)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Checkout("paid")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `checkout_transitions_total{outcome="paid"} 1`)
}
