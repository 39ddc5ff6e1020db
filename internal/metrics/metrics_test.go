package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCycle("oracle", false, time.Second)
	m.PairReadFailed("ETH/USD")
	m.MarketFetched(nil)
	m.ViewPublished()
	m.ActionFinished("mint", "confirmed")
	m.ThresholdEvent("ETH")
	m.StreamConnected()
	m.StreamDisconnected()
	require.Nil(t, m.Registry())
}

func TestCountersRecord(t *testing.T) {
	m := New()
	m.ObserveCycle("oracle", true, 10*time.Millisecond)
	m.ObserveCycle("oracle", false, 10*time.Millisecond)
	m.PairReadFailed("BTC/USD")
	m.MarketFetched(errors.New("boom"))
	m.ActionFinished("mint", "user_rejected")

	require.Equal(t, 1.0, testutil.ToFloat64(m.ReadCycles.WithLabelValues("oracle", "degraded")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ReadCycles.WithLabelValues("oracle", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.PairReadErrors.WithLabelValues("BTC/USD")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.MarketFetches.WithLabelValues("error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Actions.WithLabelValues("mint", "user_rejected")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ViewPublished()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "price_oracle_dashboard_view_published_total 1"))
}

func TestIndependentRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		New()
		New()
	})
}
