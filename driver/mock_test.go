package driver

import (
	"testing"

	"plcgateway/config"
)

func TestMockDriverConnectSucceedsByDefault(t *testing.T) {
	d := NewMockDriver(config.PLCConfig{Name: "compactlogix"})
	if err := d.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !d.IsConnected() {
		t.Fatalf("expected connected")
	}
}

func TestMockDriverFailReconnectThenRecovers(t *testing.T) {
	d := NewMockDriver(config.PLCConfig{Name: "compactlogix", MockFailReconn: true})
	for i := 0; i < failureBudget; i++ {
		if err := d.Connect(); err == nil {
			t.Fatalf("expected failure on attempt %d", i+1)
		}
	}
	if err := d.Connect(); err != nil {
		t.Fatalf("expected recovery after %d attempts, got %v", failureBudget, err)
	}
	if !d.IsConnected() {
		t.Fatalf("expected connected after recovery")
	}
}

func TestMockDriverReadRequiresConnection(t *testing.T) {
	d := NewMockDriver(config.PLCConfig{Name: "compactlogix"})
	if _, err := d.Read([]string{"Main.Temp"}); err == nil {
		t.Fatalf("expected error reading while disconnected")
	}
	d.Connect()
	results, err := d.Read([]string{"Main.Temp", "Main.Count"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestRegistryCreateUnknownFamily(t *testing.T) {
	_, err := Create(config.PLCConfig{Family: "bogus"})
	if err == nil {
		t.Fatalf("expected error for unknown family")
	}
}

func TestRegistryCreateMock(t *testing.T) {
	d, err := Create(config.PLCConfig{Family: config.FamilyMock, Name: "compactlogix"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := d.(*MockDriver); !ok {
		t.Fatalf("expected *MockDriver, got %T", d)
	}
}
