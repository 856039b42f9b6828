package poller

import (
	"plcgateway/tagstore"
	"plcgateway/value"
)

// MultiObserver fans an event out to several observers, letting the gateway
// wire the HealthRegistry, the metrics.Registry, and an optional MQTT bridge
// behind one Poller.Observer slot without the Poller knowing how many
// capabilities are actually enabled.
type MultiObserver []Observer

func (m MultiObserver) OnConnected(plc string) {
	for _, o := range m {
		o.OnConnected(plc)
	}
}

func (m MultiObserver) OnFailed(plc string, err error) {
	for _, o := range m {
		o.OnFailed(plc, err)
	}
}

func (m MultiObserver) OnBackoff(plc string, seconds float64) {
	for _, o := range m {
		o.OnBackoff(plc, seconds)
	}
}

func (m MultiObserver) OnPollLatency(seconds float64) {
	for _, o := range m {
		o.OnPollLatency(seconds)
	}
}

func (m MultiObserver) OnTagUpdate(plc, address string, v value.Value, quality tagstore.Quality) {
	for _, o := range m {
		o.OnTagUpdate(plc, address, v, quality)
	}
}
