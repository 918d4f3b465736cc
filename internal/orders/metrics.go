package orders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of persisted orders",
	})

	ordersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of rejected checkouts by reason",
	}, []string{"reason"})

	orderValueHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orders_total_value",
		Help:    "Distribution of order totals",
		Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000},
	})
)
