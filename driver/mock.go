package driver

import (
	"fmt"
	"math"
	"sync"
	"time"

	"plcgateway/config"
)

// MockDriver is a deterministic, in-process stand-in for a real PLC,
// governed by GATEWAY_MOCK_PLC. It additionally honors
// GATEWAY_MOCK_FAIL_RECONNECT (config.PLCConfig.MockFailReconn), which
// pre-seeds a run of failed reconnects so the HealthRegistry's backoff
// pathway is deterministically testable per spec scenario S3/S4.
type MockDriver struct {
	mu          sync.Mutex
	name        string
	connected   bool
	failReconn  bool
	connectAttempts int
	start       time.Time
}

// NewMockDriver constructs a Mock driver for cfg. It never fails to
// construct; only Connect can fail, per the configured fault policy.
func NewMockDriver(cfg config.PLCConfig) *MockDriver {
	return &MockDriver{name: cfg.Name, failReconn: cfg.MockFailReconn, start: time.Now()}
}

// failureBudget is how many leading Connect calls fail when MockFailReconn
// is set, chosen to exercise the fail_count=1..3 backoff progression (S3)
// before recovering (S4).
const failureBudget = 3

func (m *MockDriver) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectAttempts++
	if m.failReconn && m.connectAttempts <= failureBudget {
		return fmt.Errorf("mock(%s): simulated connect failure %d/%d", m.name, m.connectAttempts, failureBudget)
	}
	m.connected = true
	return nil
}

func (m *MockDriver) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *MockDriver) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Read synthesizes deterministic values from elapsed time so repeated polls
// produce a changing, reproducible waveform without any external state.
func (m *MockDriver) Read(addresses []string) ([]ReadResult, error) {
	m.mu.Lock()
	connected := m.connected
	elapsed := time.Since(m.start).Seconds()
	m.mu.Unlock()

	if !connected {
		return nil, fmt.Errorf("mock(%s): not connected", m.name)
	}

	results := make([]ReadResult, len(addresses))
	for i, addr := range addresses {
		results[i] = ReadResult{Address: addr, Raw: mockValueFor(addr, elapsed)}
	}
	return results, nil
}

func (m *MockDriver) Write(address string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock(%s): not connected", m.name)
	}
	// The mock has no backing storage to write into; writes succeed
	// unconditionally, mirroring a PLC register that silently accepts the
	// value until the next poll reads it back as the synthesized waveform.
	return nil
}

// mockValueFor derives a deterministic value from the address name's hash
// and elapsed time, so different addresses produce visibly distinct series.
func mockValueFor(address string, elapsed float64) interface{} {
	h := fnv32(address)
	phase := float64(h%360) * math.Pi / 180
	return 50 + 10*math.Sin(elapsed/5+phase)
}

func fnv32(s string) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}
