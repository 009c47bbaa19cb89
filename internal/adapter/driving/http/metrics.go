package httphandler

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zappdidappdi/home-assistant-tgtg/internal/application"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

// collectTimeout bounds store reads on the scrape path.
const collectTimeout = 5 * time.Second

// Metrics owns the Prometheus registry and the instruments fed by the
// middleware. Listing gauges are read from the store at scrape time instead
// of being pushed from the poll loop.
type Metrics struct {
	registry     *prometheus.Registry
	httpRequests *prometheus.CounterVec
}

// NewMetrics builds a registry with the runtime collectors, the HTTP request
// counter, and the watcher collector.
func NewMetrics(items driven.ItemStore, poll *application.PollService, auth *application.AuthService) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tgtg_http_requests_total",
		Help: "HTTP requests served, by method, route pattern, and status code.",
	}, []string{"method", "route", "status"})
	registry.MustRegister(httpRequests)
	registry.MustRegister(newWatcherCollector(items, poll, auth))

	return &Metrics{registry: registry, httpRequests: httpRequests}
}

// ExporterHandler returns the handler for the metrics endpoint.
func (m *Metrics) ExporterHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// watcherCollector exposes listing availability, poll loop, and auth refresh
// metrics from application state.
type watcherCollector struct {
	items driven.ItemStore
	poll  *application.PollService
	auth  *application.AuthService

	itemsAvailable *prometheus.Desc
	itemPrice      *prometheus.Desc
	pollTotal      *prometheus.Desc
	pollDuration   *prometheus.Desc
	authRefresh    *prometheus.Desc
}

func newWatcherCollector(items driven.ItemStore, poll *application.PollService, auth *application.AuthService) *watcherCollector {
	return &watcherCollector{
		items: items,
		poll:  poll,
		auth:  auth,
		itemsAvailable: prometheus.NewDesc(
			"tgtg_items_available",
			"Bags currently available per listing.",
			[]string{"item_id", "store"}, nil,
		),
		itemPrice: prometheus.NewDesc(
			"tgtg_item_price_minor_units",
			"Current bag price per listing, in minor currency units.",
			[]string{"item_id", "store", "currency"}, nil,
		),
		pollTotal: prometheus.NewDesc(
			"tgtg_poll_total",
			"Completed poll cycles, by result.",
			[]string{"result"}, nil,
		),
		pollDuration: prometheus.NewDesc(
			"tgtg_poll_duration_seconds",
			"Duration of the most recent poll cycle.",
			nil, nil,
		),
		authRefresh: prometheus.NewDesc(
			"tgtg_auth_refresh_total",
			"Background token refreshes, by persistence result.",
			[]string{"result"}, nil,
		),
	}
}

func (c *watcherCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.itemsAvailable
	ch <- c.itemPrice
	ch <- c.pollTotal
	ch <- c.pollDuration
	ch <- c.authRefresh
}

func (c *watcherCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	// A failed store read drops the listing gauges from this scrape; the
	// remaining metrics still report.
	if items, err := c.items.ListAll(ctx); err == nil {
		for _, item := range items {
			ch <- prometheus.MustNewConstMetric(
				c.itemsAvailable, prometheus.GaugeValue,
				float64(item.ItemsAvailable), item.ItemID, item.DisplayName,
			)
			if !item.Price.IsZero() {
				ch <- prometheus.MustNewConstMetric(
					c.itemPrice, prometheus.GaugeValue,
					float64(item.Price.MinorUnits), item.ItemID, item.DisplayName, item.Price.Code,
				)
			}
		}
	}

	status := c.poll.Status()
	ch <- prometheus.MustNewConstMetric(c.pollTotal, prometheus.CounterValue, float64(status.CyclesClean), "ok")
	ch <- prometheus.MustNewConstMetric(c.pollTotal, prometheus.CounterValue, float64(status.CyclesFailed), "error")
	ch <- prometheus.MustNewConstMetric(c.pollDuration, prometheus.GaugeValue, status.LastDuration.Seconds())

	ok, failed := c.auth.RefreshCounts()
	ch <- prometheus.MustNewConstMetric(c.authRefresh, prometheus.CounterValue, float64(ok), "ok")
	ch <- prometheus.MustNewConstMetric(c.authRefresh, prometheus.CounterValue, float64(failed), "error")
}
