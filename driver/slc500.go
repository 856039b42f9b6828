package driver

import (
	"fmt"
	"time"

	"plcgateway/config"
	"plcgateway/logging"
	"plcgateway/slc500"
)

// SLC500Adapter wraps slc500.Client (the DF1/PCCC transport) to implement
// Driver, in the same shape as CompactLogixAdapter: a thin translation from
// the gateway's generic string-addressed Read/Write contract to the
// protocol client's typed element access.
type SLC500Adapter struct {
	address string
	client  *slc500.Client
}

func NewSLC500Adapter(cfg config.PLCConfig) (*SLC500Adapter, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("slc500: empty address")
	}
	return &SLC500Adapter{address: cfg.Address}, nil
}

func (a *SLC500Adapter) Connect() error {
	client, err := slc500.Dial(a.address, 5*time.Second)
	if err != nil {
		logging.DebugConnectError("slc500", a.address, err)
		return fmt.Errorf("slc500 connect: %w", err)
	}
	logging.DebugConnectSuccess("slc500", a.address, "DF1/PCCC")
	a.client = client
	return nil
}

func (a *SLC500Adapter) Disconnect() error {
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}
	return nil
}

func (a *SLC500Adapter) IsConnected() bool {
	return a.client != nil
}

func (a *SLC500Adapter) Read(addresses []string) ([]ReadResult, error) {
	if a.client == nil {
		return nil, fmt.Errorf("slc500: not connected")
	}
	results := make([]ReadResult, len(addresses))
	for i, addrStr := range addresses {
		addr, err := slc500.ParseAddress(addrStr)
		if err != nil {
			results[i] = ReadResult{Address: addrStr, Err: err}
			continue
		}
		raw, err := a.client.ReadElement(addr)
		if err != nil {
			if IsLikelyConnectionError(err) {
				return nil, err
			}
			results[i] = ReadResult{Address: addrStr, Err: err}
			continue
		}
		results[i] = ReadResult{Address: addrStr, Raw: raw}
	}
	return results, nil
}

func (a *SLC500Adapter) Write(address string, value interface{}) error {
	if a.client == nil {
		return fmt.Errorf("slc500: not connected")
	}
	addr, err := slc500.ParseAddress(address)
	if err != nil {
		return err
	}
	return a.client.WriteElement(addr, value)
}
