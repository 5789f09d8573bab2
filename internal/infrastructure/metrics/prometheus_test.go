package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/trailing_stop/internal/domain"
	"github.com/vitos/trailing_stop/internal/usecase"
)

var _ usecase.Metrics = (*Collector)(nil)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveTick("BTCUSDT", 105, 103.95)
	c.ObserveTick("BTCUSDT", 110, 108.9)
	c.IncReplacement(domain.OutcomeReplaced)
	c.IncReplacement(domain.OutcomeReplaced)
	c.IncReplacement(domain.OutcomeUnprotected)
	c.IncOrderQueryFailure()
	c.IncAccountEvent(domain.AccountEventOrderTrade)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ticks))
	assert.Equal(t, 110.0, testutil.ToFloat64(c.lastPrice.WithLabelValues("BTCUSDT")))
	assert.Equal(t, 108.9, testutil.ToFloat64(c.watermark.WithLabelValues("BTCUSDT")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.replacements.WithLabelValues("replaced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.replacements.WithLabelValues("unprotected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queryFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.accountEvents.WithLabelValues("order_trade")))

	expected := `
# HELP trailing_order_query_failures_total Open order lookups that failed
# TYPE trailing_order_query_failures_total counter
trailing_order_query_failures_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "trailing_order_query_failures_total"))
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}
