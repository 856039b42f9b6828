package driver

import (
	"fmt"

	"plcgateway/config"
	"plcgateway/logging"
	"plcgateway/logix"
)

// CompactLogixAdapter wraps logix.Client — the EtherNet/IP CIP protocol
// client — to implement Driver. It only exercises Connect/Close/IsConnected/
// ConnectionMode/Read/Write; this gateway addresses tags by fixed, externally-configured
// symbolic paths rather than browsing the controller's tag database, so the
// client's structure/UDT member decoding is out of scope here and a read
// simply returns logix.TagValue.GoValue()'s scalar/array conversion.
type CompactLogixAdapter struct {
	address string
	client  *logix.Client
}

// NewCompactLogixAdapter creates an adapter for the given PLC configuration.
// The connection is not established until Connect() is called.
func NewCompactLogixAdapter(cfg config.PLCConfig) (*CompactLogixAdapter, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("compactlogix: empty address")
	}
	return &CompactLogixAdapter{address: cfg.Address}, nil
}

func (a *CompactLogixAdapter) Connect() error {
	client, err := logix.Connect(a.address)
	if err != nil {
		logging.DebugConnectError("compactlogix", a.address, err)
		return fmt.Errorf("compactlogix connect: %w", err)
	}
	logging.DebugConnectSuccess("compactlogix", a.address, client.ConnectionMode())
	a.client = client
	return nil
}

func (a *CompactLogixAdapter) Disconnect() error {
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}
	return nil
}

func (a *CompactLogixAdapter) IsConnected() bool {
	return a.client != nil && a.client.IsConnected()
}

// Read reads all addresses through logix.Client.Read, which sends Multiple
// Service Packet requests of up to 50 tags (5 without a Forward Open
// connection), and returns a ReadResult per address, preserving per-address
// errors instead of faulting the whole call unless the transport itself
// failed.
func (a *CompactLogixAdapter) Read(addresses []string) ([]ReadResult, error) {
	if a.client == nil {
		return nil, fmt.Errorf("compactlogix: not connected")
	}

	values, err := a.client.Read(addresses...)
	if err != nil {
		return nil, fmt.Errorf("compactlogix read: %w", err)
	}

	results := make([]ReadResult, len(addresses))
	for i, addr := range addresses {
		if i >= len(values) || values[i] == nil {
			results[i] = ReadResult{Address: addr, Err: fmt.Errorf("compactlogix: no response for %q", addr)}
			continue
		}
		v := values[i]
		if v.Error != nil {
			results[i] = ReadResult{Address: addr, Err: v.Error}
			continue
		}
		results[i] = ReadResult{Address: addr, Raw: v.GoValue()}
	}
	return results, nil
}

func (a *CompactLogixAdapter) Write(address string, value interface{}) error {
	if a.client == nil {
		return fmt.Errorf("compactlogix: not connected")
	}
	return a.client.Write(address, value)
}
