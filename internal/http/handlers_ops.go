package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

type appMetrics struct {
	started         time.Time
	projectsCreated int64
	paymentsAdded   int64
	expensesAdded   int64
	cacheHits       int64
	cacheMisses     int64
	invalidations   int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{started: time.Now()}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.started).Round(time.Second).String(),
	})
}

// handleReady reports whether templates are loaded and the store answers a
// ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	checks["store"] = "ok"
	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	checks["cache"] = map[string]any{
		"summary_entries":   s.summaries.Size(),
		"portfolio_entries": s.portfolio.Size(),
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()
	secMetrics := s.securityDetector.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_microseconds", "gauge", "Smoothed response time", traceMetrics.AverageResponseTime)
	metric("projects_created_total", "counter", "Projects created through the API", atomic.LoadInt64(&s.appMetrics.projectsCreated))
	metric("payments_added_total", "counter", "Payments recorded through the API", atomic.LoadInt64(&s.appMetrics.paymentsAdded))
	metric("expenses_added_total", "counter", "Expenses recorded through the API", atomic.LoadInt64(&s.appMetrics.expensesAdded))
	metric("cache_hits_total", "counter", "Summary cache hits", atomic.LoadInt64(&s.appMetrics.cacheHits))
	metric("cache_misses_total", "counter", "Summary cache misses", atomic.LoadInt64(&s.appMetrics.cacheMisses))
	metric("cache_invalidations_total", "counter", "Cache invalidations after mutations", atomic.LoadInt64(&s.appMetrics.invalidations))

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{type=\"summary\"} %d\n", s.summaries.Size())
	fmt.Fprintf(w, "cache_entries{type=\"portfolio\"} %d\n\n", s.portfolio.Size())

	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Scanner probes blocked", secMetrics.BlockedRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.started).Seconds()))
}
