package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/invman/internal/domain/event"
	"github.com/kailas-cloud/invman/internal/domain/observer"
)

// Inventory Prometheus metrics.
var (
	ItemSupply = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "invman",
			Name:      "item_supply",
			Help:      "Remaining supply of an item",
		},
		[]string{"item"},
	)

	ItemDailyConsumption = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "invman",
			Name:      "item_daily_consumption",
			Help:      "Sum of the configured daily doses of an item",
		},
		[]string{"item"},
	)

	ItemDaysRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "invman",
			Name:      "item_days_remaining",
			Help:      "Projected days until the supply runs out (10000 = not projectable)",
		},
		[]string{"item"},
	)

	ItemWarning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "invman",
			Name:      "item_warning",
			Help:      "1 when the item runs out within its warning threshold",
		},
		[]string{"item"},
	)

	DisplayRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invman",
			Name:      "display_refreshes_total",
			Help:      "Total display refreshes by slot",
		},
		[]string{"item", "slot"},
	)
)

var invMetricsRegistered bool

// RegisterInventoryMetrics registers Prometheus inventory metrics. Must be called once from main.
func RegisterInventoryMetrics() {
	if invMetricsRegistered {
		return
	}
	prometheus.MustRegister(ItemSupply)
	prometheus.MustRegister(ItemDailyConsumption)
	prometheus.MustRegister(ItemDaysRemaining)
	prometheus.MustRegister(ItemWarning)
	prometheus.MustRegister(DisplayRefreshesTotal)
	invMetricsRegistered = true
}

// Sink mirrors display events into the inventory gauges.
type Sink struct{}

// Publish implements display.Sink.
func (Sink) Publish(_ context.Context, e event.Event) error {
	ItemSupply.WithLabelValues(e.Item).Set(e.Supply)
	ItemDailyConsumption.WithLabelValues(e.Item).Set(e.DailyConsumption)
	ItemDaysRemaining.WithLabelValues(e.Item).Set(e.DaysRemaining)
	if e.Slot == observer.Warning {
		v := 0.0
		if e.Active {
			v = 1
		}
		ItemWarning.WithLabelValues(e.Item).Set(v)
	}
	DisplayRefreshesTotal.WithLabelValues(e.Item, string(e.Slot)).Inc()
	return nil
}

// Forget drops the series of a removed item.
func Forget(item string) {
	ItemSupply.DeleteLabelValues(item)
	ItemDailyConsumption.DeleteLabelValues(item)
	ItemDaysRemaining.DeleteLabelValues(item)
	ItemWarning.DeleteLabelValues(item)
	DisplayRefreshesTotal.DeletePartialMatch(prometheus.Labels{"item": item})
}
