package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the private registry served on /api/metrics.
// Keeping it separate from the global default avoids duplicate registration in tests.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Custom histogram buckets for API response times ranging from milliseconds to 30+ seconds.
	// Google Sheets and email provider calls sit in the 100ms-3s range.
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34}

	// HTTP Metrics
	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Spreadsheet Client Metrics (Google Sheets)
	SheetsRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheets_client_operation_duration_seconds",
			Help:    "Google Sheets API operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	SheetsRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheets_client_operation_total",
			Help: "Total number of Google Sheets API operations",
		},
		[]string{"operation", "status"},
	)

	SheetTabsCreated = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "kardan_lead_sheet_tabs_created_total",
			Help: "Total number of daily lead tabs created",
		},
	)

	SheetHeaderRepairs = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "kardan_lead_sheet_header_repairs_total",
			Help: "Total number of header rows rewritten on existing tabs",
		},
	)

	// Email Provider Metrics
	EmailSendDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "email_client_send_duration_seconds",
			Help:    "Email provider send duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"provider", "status"},
	)

	EmailSendTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_client_send_total",
			Help: "Total number of emails handed to the provider",
		},
		[]string{"provider", "kind", "status"},
	)

	// Business Metrics
	LeadSubmissions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kardan_lead_submissions_total",
			Help: "Total number of lead form submissions by outcome",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// StatusLabel maps an error to the "status" label used across client metrics
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
