package poller

import "plcgateway/gatewayerr"
import "plcgateway/value"

// Router dispatches a write to the Poller owning a given PLC name, letting
// restapi address writes by plc without importing the gateway's process
// wiring. The zero value is not usable; build with NewRouter.
type Router struct {
	pollers map[string]*Poller
}

// NewRouter builds a Router over the given plc name -> Poller mapping.
func NewRouter(pollers map[string]*Poller) *Router {
	return &Router{pollers: pollers}
}

// EnqueueWrite routes to the named PLC's Poller, or NotFound if no Poller
// was configured under that name.
func (r *Router) EnqueueWrite(plc, address string, v value.Value) error {
	p, ok := r.pollers[plc]
	if !ok {
		return gatewayerr.NotFoundf("plc %q not configured", plc)
	}
	return p.EnqueueWrite(address, v)
}
