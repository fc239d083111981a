// Package metrics provides Prometheus instrumentation for the risk service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskd",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskd",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// AssessmentsTotal counts completed assessments by final risk level.
	AssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskd",
			Name:      "assessments_total",
			Help:      "Total risk assessments by final level.",
		},
		[]string{"level"},
	)

	// DecisionsTotal counts decisions by action.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskd",
			Name:      "decisions_total",
			Help:      "Total risk decisions by action.",
		},
		[]string{"action"},
	)

	// AssessmentDuration observes end-to-end assessment latency.
	AssessmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "riskd",
			Name:      "assessment_duration_seconds",
			Help:      "End-to-end risk assessment duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// VerificationChecksTotal counts external verification outcomes.
	VerificationChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskd",
			Name:      "verification_checks_total",
			Help:      "External verification check outcomes by service and status.",
		},
		[]string{"service", "status"},
	)

	// VerificationDuration observes per-check provider latency.
	VerificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskd",
			Name:      "verification_duration_seconds",
			Help:      "External verification check duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// CustomRuleMatchesTotal counts custom rule matches by rule name.
	CustomRuleMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskd",
			Name:      "custom_rule_matches_total",
			Help:      "Custom risk rule matches by rule name.",
		},
		[]string{"rule"},
	)

	// RuleEvaluationFailuresTotal counts degraded custom-rule passes.
	RuleEvaluationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "riskd",
			Name:      "rule_evaluation_failures_total",
			Help:      "Custom rule evaluation passes that degraded to zero contribution.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AssessmentsTotal,
		DecisionsTotal,
		AssessmentDuration,
		VerificationChecksTotal,
		VerificationDuration,
		CustomRuleMatchesTotal,
		RuleEvaluationFailuresTotal,
	)
}

// Middleware records request counts and latency for every route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
