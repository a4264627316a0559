// Package exporters publishes capture metrics over Prometheus and SSE.
package exporters

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler serves the default registry, where the capture collectors
// are registered, in text or OpenMetrics format. Scrapes are themselves
// counted in promhttp_metric_handler_requests_total.
func HTTPHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics:   true,
			MaxRequestsInFlight: 2,
		}),
	)
}
