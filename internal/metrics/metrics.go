// Package metrics exposes engine activity as Prometheus metrics:
//
//	stocksim_ticks_total                      completed simulation ticks
//	stocksim_orders_total{result}             orders by result (settled or a rejection reason)
//	stocksim_notifications_total{level}       notifications by level
//	stocksim_cash_balance                     current cash balance
//	stocksim_instrument_price{instrument}     latest price per instrument
//	stocksim_instruments                      number of loaded instruments
package metrics

import (
	"context"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/govalues/decimal"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is an engine event sink that updates Prometheus collectors.
type Metrics struct {
	ticks         prometheus.Counter
	orders        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	cash          prometheus.Gauge
	price         *prometheus.GaugeVec
	instruments   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stocksim_ticks_total",
			Help: "Completed simulation ticks.",
		}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocksim_orders_total",
			Help: "Submitted orders by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocksim_notifications_total",
			Help: "Notifications emitted by level.",
		}, []string{"level"}),
		cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stocksim_cash_balance",
			Help: "Current portfolio cash balance.",
		}),
		price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stocksim_instrument_price",
			Help: "Latest simulated price per instrument.",
		}, []string{"instrument"}),
		instruments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stocksim_instruments",
			Help: "Number of loaded instruments.",
		}),
	}
	reg.MustRegister(m.ticks, m.orders, m.notifications, m.cash, m.price, m.instruments)
	return m
}

func (m *Metrics) Publish(_ context.Context, ev domain.Event) {
	switch ev.Type {
	case domain.EventInstrumentsLoaded:
		m.instruments.Set(float64(len(ev.Instruments)))
		m.setPrices(ev.Instruments)
		m.setCash(ev.Cash)
	case domain.EventInstrumentsUpdated:
		m.ticks.Inc()
		m.setPrices(ev.Instruments)
	case domain.EventPortfolioChanged:
		m.setCash(ev.Cash)
	case domain.EventOrderSettled:
		m.orders.WithLabelValues("settled").Inc()
	case domain.EventOrderRejected:
		if ev.Rejection != nil {
			m.orders.WithLabelValues(ev.Rejection.Reason).Inc()
		}
	case domain.EventNotify:
		if ev.Notification != nil {
			m.notifications.WithLabelValues(string(ev.Notification.Level)).Inc()
		}
	}
}

func (m *Metrics) setPrices(instruments []domain.Instrument) {
	for _, inst := range instruments {
		m.price.WithLabelValues(inst.Name).Set(toFloat(inst.Price))
	}
}

func (m *Metrics) setCash(cash *decimal.Decimal) {
	if cash != nil {
		m.cash.Set(toFloat(*cash))
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
