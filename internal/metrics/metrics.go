// Package metrics exposes pipeline state as Prometheus metrics. Tallies are
// read from the store on each scrape rather than tracked in process, so the
// numbers stay correct across CLI runs and server restarts.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/store"
)

var (
	runsDesc = prometheus.NewDesc(
		"signals_runs_total",
		"Pipeline runs by status",
		[]string{"status"},
		nil,
	)
	leadsDesc = prometheus.NewDesc(
		"signals_leads_total",
		"Stored leads by status",
		[]string{"status"},
		nil,
	)
)

// StoreCollector is a custom Prometheus collector that reads run and lead
// counts from the store on each scrape.
type StoreCollector struct {
	store store.Store
}

// NewStoreCollector builds a collector over the given store. Register it with
// a prometheus registry before exposing the scrape handler.
func NewStoreCollector(st store.Store) *StoreCollector {
	return &StoreCollector{store: st}
}

// Describe sends the metric descriptors to the channel.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- runsDesc
	ch <- leadsDesc
}

// Collect queries the store and emits one gauge per status. A failed query
// drops that family from the scrape instead of failing it.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx := context.Background()

	runs, err := c.store.CountRunsByStatus(ctx)
	if err != nil {
		zap.L().Error("metrics: count runs failed", zap.Error(err))
	} else {
		for _, sc := range runs {
			ch <- prometheus.MustNewConstMetric(runsDesc, prometheus.GaugeValue, float64(sc.Count), sc.Status)
		}
	}

	leads, err := c.store.CountLeadsByStatus(ctx)
	if err != nil {
		zap.L().Error("metrics: count leads failed", zap.Error(err))
		return
	}
	for _, sc := range leads {
		ch <- prometheus.MustNewConstMetric(leadsDesc, prometheus.GaugeValue, float64(sc.Count), sc.Status)
	}
}
