// Package metrics exposes the gateway's Prometheus collectors, named exactly
// as the external interface contract specifies. It implements poller.Observer
// so a *Registry can be registered as one of several observers a Poller
// calls unconditionally — the "optional metrics" design note models the
// exporter as a capability behind this same interface, with NoopObserver
// standing in when metrics are disabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"plcgateway/tagstore"
	"plcgateway/value"
)

// Registry holds the five collectors the gateway exports.
type Registry struct {
	lastBackoff    *prometheus.GaugeVec
	failCount      *prometheus.GaugeVec
	reconnectTotal *prometheus.CounterVec
	connected      *prometheus.GaugeVec
	pollLatency    prometheus.Histogram

	ip map[string]string // plc name -> ip, for the {plc,ip} label pair
}

// New registers the five collectors against reg (typically
// prometheus.NewRegistry(), not the global DefaultRegisterer, so tests can
// construct isolated instances).
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		lastBackoff: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vs_opc_plc_last_backoff_seconds",
			Help: "Current reconnect backoff in seconds for a PLC.",
		}, []string{"plc", "ip"}),
		failCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vs_opc_plc_fail_count",
			Help: "Consecutive connect/read failures for a PLC.",
		}, []string{"plc", "ip"}),
		reconnectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vs_opc_plc_reconnect_total",
			Help: "Total successful (re)connects for a PLC.",
		}, []string{"plc", "ip"}),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vs_opc_plc_connected",
			Help: "1 if the PLC is currently connected, else 0.",
		}, []string{"plc", "ip"}),
		pollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vs_opc_poll_latency_seconds",
			Help:    "Observed latency of a batched poll read.",
			Buckets: prometheus.DefBuckets,
		}),
		ip: make(map[string]string),
	}
	reg.MustRegister(m.lastBackoff, m.failCount, m.reconnectTotal, m.connected, m.pollLatency)
	return m
}

// RegisterPLC records the ip label to use for plc in subsequent observations.
func (m *Registry) RegisterPLC(plc, ip string) {
	m.ip[plc] = ip
}

func (m *Registry) labels(plc string) prometheus.Labels {
	return prometheus.Labels{"plc": plc, "ip": m.ip[plc]}
}

func (m *Registry) OnConnected(plc string) {
	m.connected.With(m.labels(plc)).Set(1)
	m.failCount.With(m.labels(plc)).Set(0)
	m.lastBackoff.With(m.labels(plc)).Set(0)
	m.reconnectTotal.With(m.labels(plc)).Inc()
}

func (m *Registry) OnFailed(plc string, err error) {
	m.connected.With(m.labels(plc)).Set(0)
	m.failCount.With(m.labels(plc)).Inc()
}

func (m *Registry) OnBackoff(plc string, seconds float64) {
	m.lastBackoff.With(m.labels(plc)).Set(seconds)
}

func (m *Registry) OnPollLatency(seconds float64) {
	m.pollLatency.Observe(seconds)
}

func (m *Registry) OnTagUpdate(string, string, value.Value, tagstore.Quality) {}
