package driver

import (
	"fmt"

	"plcgateway/config"
)

// Create builds a Driver for the given PLC configuration. The connection is
// not established until Connect() is called on the returned driver.
func Create(cfg config.PLCConfig) (Driver, error) {
	switch cfg.Family {
	case config.FamilyMock:
		return NewMockDriver(cfg), nil
	case config.FamilyCompactLogix:
		return NewCompactLogixAdapter(cfg)
	case config.FamilySLC500:
		return NewSLC500Adapter(cfg)
	default:
		return nil, fmt.Errorf("driver: unknown PLC family %q", cfg.Family)
	}
}
