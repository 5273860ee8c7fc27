package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal        uint64
	RequestsInProgress   uint64
	RequestsSuccess      uint64
	RequestsFailed       uint64
	AssessmentsQueued    uint64
	AssessmentsRunning   uint64
	AssessmentsProcessed uint64
	AssessmentsFailed    uint64
	AssessmentsRetried   uint64
	StartTime            time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementRequests increments total request counter
func IncrementRequests() {
	atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
}

// IncrementInProgress increments in-progress request counter
func IncrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
}

// DecrementInProgress decrements in-progress request counter
func DecrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))
}

// IncrementSuccess increments successful request counter
func IncrementSuccess() {
	atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
}

// IncrementFailed increments failed request counter
func IncrementFailed() {
	atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
}

// IncrementAssessmentsQueued increments queued assessment tasks counter
func IncrementAssessmentsQueued() {
	atomic.AddUint64(&globalMetrics.AssessmentsQueued, 1)
}

// IncrementAssessmentsRunning increments running assessments counter
func IncrementAssessmentsRunning() {
	atomic.AddUint64(&globalMetrics.AssessmentsRunning, 1)
}

// DecrementAssessmentsRunning decrements running assessments counter
func DecrementAssessmentsRunning() {
	atomic.AddUint64(&globalMetrics.AssessmentsRunning, ^uint64(0))
}

// IncrementAssessmentsProcessed increments processed assessments counter
func IncrementAssessmentsProcessed() {
	atomic.AddUint64(&globalMetrics.AssessmentsProcessed, 1)
}

// IncrementAssessmentsFailed increments failed assessments counter
func IncrementAssessmentsFailed() {
	atomic.AddUint64(&globalMetrics.AssessmentsFailed, 1)
}

// IncrementAssessmentsRetried increments retry-later reschedules counter
func IncrementAssessmentsRetried() {
	atomic.AddUint64(&globalMetrics.AssessmentsRetried, 1)
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":        atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress":  atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":      atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":       atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"assessments_queued":    atomic.LoadUint64(&globalMetrics.AssessmentsQueued),
		"assessments_running":   atomic.LoadUint64(&globalMetrics.AssessmentsRunning),
		"assessments_processed": atomic.LoadUint64(&globalMetrics.AssessmentsProcessed),
		"assessments_failed":    atomic.LoadUint64(&globalMetrics.AssessmentsFailed),
		"assessments_retried":   atomic.LoadUint64(&globalMetrics.AssessmentsRetried),
		"uptime_seconds":        time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		// Wrap response writer to capture status
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		// Track success/failure based on status code
		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
