package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	requestsTotal       *prometheus.CounterVec
	requestLatency      *prometheus.HistogramVec
	errorsTotal         *prometheus.CounterVec
	workflowTransitions *prometheus.CounterVec
	uploadRejectedTotal *prometheus.CounterVec
	reportLatency       *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursework_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_errors_total",
			Help: "Total number of error responses returned.",
		}, []string{"method", "route", "status"})

		workflowTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_workflow_transitions_total",
			Help: "Submission workflow operations by outcome.",
		}, []string{"op", "outcome"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursework_upload_rejected_total",
			Help: "Uploads rejected at the boundary, by reason.",
		}, []string{"reason"})

		reportLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursework_report_latency_seconds",
			Help:    "Latency distribution for analytics report computation.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"report"})

		prometheus.MustRegister(requestsTotal, requestLatency, errorsTotal, workflowTransitions, uploadRejectedTotal, reportLatency)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatency
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// WorkflowTransitions exposes the counter for workflow operations.
func WorkflowTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return workflowTransitions
}

// UploadRejected exposes the counter for rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// ReportLatency exposes the latency histogram for analytics reports.
func ReportLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return reportLatency
}
