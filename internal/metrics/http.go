package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// unmatchedRoute labels requests that hit no registered route, so scanners
// probing random paths cannot inflate label cardinality.
const unmatchedRoute = "unmatched"

// httpInstruments holds the request instruments shared by every route.
type httpInstruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter, namespace string) (*httpInstruments, error) {
	requests, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5),
	)
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_http_requests_in_flight", namespace),
		metric.WithDescription("HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpInstruments{requests: requests, duration: duration, inFlight: inFlight}, nil
}

// HTTPMetricsMiddleware records request count, latency and in-flight requests
// labeled by method, route pattern and status class (2xx, 4xx, ...). Routes
// listed in skip, such as health probes, are not recorded. When an instrument
// cannot be created the middleware is a no-op.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string, skip ...string) gin.HandlerFunc {
	instruments, err := newHTTPInstruments(meterProvider.Meter(namespace), namespace)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	skipped := make(map[string]bool, len(skip))
	for _, route := range skip {
		skipped[route] = true
	}

	return func(c *gin.Context) {
		route := routeLabel(c.FullPath())
		if skipped[route] {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		method := attribute.String("method", c.Request.Method)
		routeAttr := attribute.String("route", route)

		instruments.inFlight.Add(ctx, 1, metric.WithAttributes(method, routeAttr))
		start := time.Now()

		c.Next()

		elapsed := time.Since(start)
		instruments.inFlight.Add(ctx, -1, metric.WithAttributes(method, routeAttr))

		attrs := metric.WithAttributes(method, routeAttr, attribute.String("status_class", statusClass(c.Writer.Status())))
		instruments.requests.Add(ctx, 1, attrs)
		instruments.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// routeLabel returns the gin route pattern, or unmatchedRoute for 404s.
func routeLabel(fullPath string) string {
	if fullPath == "" {
		return unmatchedRoute
	}
	return fullPath
}

// statusClass collapses a status code to its class, e.g. 422 to "4xx".
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
