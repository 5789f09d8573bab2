package usecase

import "github.com/vitos/trailing_stop/internal/domain"

// Metrics receives counters and gauges from the trailing loops.
type Metrics interface {
	ObserveTick(symbol string, price, watermark float64)
	IncReplacement(outcome domain.ReplacementOutcome)
	IncOrderQueryFailure()
	IncAccountEvent(eventType domain.AccountEventType)
}

type nopMetrics struct{}

func (nopMetrics) ObserveTick(string, float64, float64)     {}
func (nopMetrics) IncReplacement(domain.ReplacementOutcome) {}
func (nopMetrics) IncOrderQueryFailure()                    {}
func (nopMetrics) IncAccountEvent(domain.AccountEventType)  {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
