package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счетчики pipeline. Лейбл status на алертах — терминальный статус.
var (
	AlertsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "algotrader_alerts_processed_total",
		Help: "Alerts driven to a terminal status, by status",
	}, []string{"status"})

	OrdersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "algotrader_orders_submitted_total",
		Help: "Orders successfully submitted to the broker",
	})

	BrokerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "algotrader_broker_errors_total",
		Help: "Failed broker API calls",
	})

	StrategiesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "algotrader_strategies_rejected_total",
		Help: "Strategy evaluations rejected by the risk gate, by reason",
	}, []string{"reason"})

	ReconcileTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "algotrader_reconcile_ticks_total",
		Help: "Reconciler polling ticks",
	})

	OrdersFilled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "algotrader_orders_filled_total",
		Help: "Orders observed as filled during reconciliation",
	})
)
