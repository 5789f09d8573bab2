package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vitos/trailing_stop/internal/domain"
)

// Collector exports the trailing engine's counters and gauges:
//
//	trailing_ticks_total                      ticks handled
//	trailing_last_price{symbol}               last ticker close
//	trailing_watermark{symbol}                highest candidate stop so far
//	trailing_replacements_total{outcome}      replacement attempts by outcome
//	trailing_order_query_failures_total       failed open-order lookups
//	trailing_account_events_total{type}       account stream events by type
type Collector struct {
	ticks         prometheus.Counter
	lastPrice     *prometheus.GaugeVec
	watermark     *prometheus.GaugeVec
	replacements  *prometheus.CounterVec
	queryFailures prometheus.Counter
	accountEvents *prometheus.CounterVec
}

// NewCollector registers all series on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trailing_ticks_total",
			Help: "Ticker updates handled",
		}),
		lastPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trailing_last_price",
			Help: "Last ticker close price",
		}, []string{"symbol"}),
		watermark: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trailing_watermark",
			Help: "Highest candidate stop price observed",
		}, []string{"symbol"}),
		replacements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailing_replacements_total",
			Help: "Stop replacement attempts by outcome",
		}, []string{"outcome"}),
		queryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trailing_order_query_failures_total",
			Help: "Open order lookups that failed",
		}),
		accountEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailing_account_events_total",
			Help: "Account stream events by type",
		}, []string{"type"}),
	}

	reg.MustRegister(c.ticks, c.lastPrice, c.watermark, c.replacements, c.queryFailures, c.accountEvents)
	return c
}

func (c *Collector) ObserveTick(symbol string, price, watermark float64) {
	c.ticks.Inc()
	c.lastPrice.WithLabelValues(symbol).Set(price)
	c.watermark.WithLabelValues(symbol).Set(watermark)
}

func (c *Collector) IncReplacement(outcome domain.ReplacementOutcome) {
	c.replacements.WithLabelValues(string(outcome)).Inc()
}

func (c *Collector) IncOrderQueryFailure() {
	c.queryFailures.Inc()
}

func (c *Collector) IncAccountEvent(eventType domain.AccountEventType) {
	c.accountEvents.WithLabelValues(string(eventType)).Inc()
}
