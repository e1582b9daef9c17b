// Package metrics collects Prometheus counters for the background and
// best-effort paths whose failures are absorbed rather than surfaced.
//
// WHY METRICS FOR THESE SPECIFICALLY?
// Pool replenishment and mail delivery fail silently from the user's point of
// view — the request that triggered them has already succeeded. A counter is
// the only way an operator notices the pool stopped growing or confirmation
// mail stopped going out.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the recording interface used by the service and mailer
// layers. Tests pass a Noop implementation.
type Collector interface {
	RecordSlotCreated()
	RecordSlotConsumed()
	RecordReplenishFailure()
	RecordMessagePublished()
	RecordPoolExhausted()
	RecordMailSent()
	RecordMailFailure()
}

// PrometheusCollector implements Collector on a Prometheus registry.
type PrometheusCollector struct {
	slotsCreated      prometheus.Counter
	slotsConsumed     prometheus.Counter
	replenishFailures prometheus.Counter
	messagesPublished prometheus.Counter
	poolExhausted     prometheus.Counter
	mailSent          prometheus.Counter
	mailFailures      prometheus.Counter
}

// NewPrometheusCollector creates the collector and registers its counters
// with the given registry.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		slotsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_pool_slots_created_total",
			Help: "Identifiers added to the free pool.",
		}),
		slotsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_pool_slots_consumed_total",
			Help: "Identifiers consumed from the free pool.",
		}),
		replenishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_pool_replenish_failures_total",
			Help: "Failed attempts to add an identifier to the pool.",
		}),
		messagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_messages_published_total",
			Help: "Messages successfully published.",
		}),
		poolExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_pool_exhausted_total",
			Help: "Publish attempts that found the pool empty after retry.",
		}),
		mailSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_mail_sent_total",
			Help: "Confirmation emails handed to the SMTP server.",
		}),
		mailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pastebin_mail_failures_total",
			Help: "Confirmation emails that could not be delivered.",
		}),
	}

	reg.MustRegister(
		c.slotsCreated,
		c.slotsConsumed,
		c.replenishFailures,
		c.messagesPublished,
		c.poolExhausted,
		c.mailSent,
		c.mailFailures,
	)

	return c
}

func (c *PrometheusCollector) RecordSlotCreated()      { c.slotsCreated.Inc() }
func (c *PrometheusCollector) RecordSlotConsumed()     { c.slotsConsumed.Inc() }
func (c *PrometheusCollector) RecordReplenishFailure() { c.replenishFailures.Inc() }
func (c *PrometheusCollector) RecordMessagePublished() { c.messagesPublished.Inc() }
func (c *PrometheusCollector) RecordPoolExhausted()    { c.poolExhausted.Inc() }
func (c *PrometheusCollector) RecordMailSent()         { c.mailSent.Inc() }
func (c *PrometheusCollector) RecordMailFailure()      { c.mailFailures.Inc() }

// Handler returns the HTTP handler serving the registry in the Prometheus
// text format, mounted at /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Noop is a Collector that records nothing. Used in tests so services don't
// need a registry.
type Noop struct{}

func (Noop) RecordSlotCreated()      {}
func (Noop) RecordSlotConsumed()     {}
func (Noop) RecordReplenishFailure() {}
func (Noop) RecordMessagePublished() {}
func (Noop) RecordPoolExhausted()    {}
func (Noop) RecordMailSent()         {}
func (Noop) RecordMailFailure()      {}
