// Package metrics exposes Prometheus counters for the verification and
// provisioning pipeline.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the application metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	codesIssued    *prometheus.CounterVec
	codesThrottled *prometheus.CounterVec
	verifyOutcomes *prometheus.CounterVec
	provisionSteps *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	cleanupRemoved prometheus.Counter
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		codesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "univio_verification_codes_issued_total",
			Help: "Verification codes issued, by email role.",
		}, []string{"role"}),
		codesThrottled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "univio_verification_codes_rate_limited_total",
			Help: "Code requests rejected by the per-email rate limit, by window.",
		}, []string{"window"}),
		verifyOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "univio_verification_attempts_total",
			Help: "Verification attempts, by outcome.",
		}, []string{"outcome"}),
		provisionSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "univio_provisioning_steps_total",
			Help: "Provisioning step results, by step and status.",
		}, []string{"step", "status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "univio_notifications_total",
			Help: "Outbound notifications, by template and success.",
		}, []string{"template", "ok"}),
		cleanupRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "univio_verification_cleanup_removed_total",
			Help: "Expired verification records removed by the cleanup job.",
		}),
	}
	reg.MustRegister(
		c.codesIssued,
		c.codesThrottled,
		c.verifyOutcomes,
		c.provisionSteps,
		c.notifications,
		c.cleanupRemoved,
	)
	return c
}

// NewRegistry returns a registry with the Go runtime and process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (c *Collector) CodeIssued(role string) {
	if c == nil {
		return
	}
	c.codesIssued.WithLabelValues(role).Inc()
}

func (c *Collector) CodeRateLimited(window string) {
	if c == nil {
		return
	}
	c.codesThrottled.WithLabelValues(window).Inc()
}

func (c *Collector) VerifyOutcome(outcome string) {
	if c == nil {
		return
	}
	c.verifyOutcomes.WithLabelValues(outcome).Inc()
}

func (c *Collector) ProvisioningStep(step, status string) {
	if c == nil {
		return
	}
	c.provisionSteps.WithLabelValues(step, status).Inc()
}

func (c *Collector) Notification(template string, ok bool) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(template, strconv.FormatBool(ok)).Inc()
}

func (c *Collector) CleanupRemoved(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.cleanupRemoved.Add(float64(n))
}
