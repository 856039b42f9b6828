package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"RECONNECT_BASE", "RECONNECT_MAX", "POLL_PERIOD", "PLC_SOCKET_TIMEOUT",
		"READY_FILE", "TAGS_FILE", "METRICS_PORT", "PROMETHEUS_PORT",
		"MQTT_BROKER_URL", "MQTT_CLIENT_ID",
		"GATEWAY_MOCK_PLC", "GATEWAY_MOCK_FAIL_RECONNECT",
		"COMPACTLOGIX_IP", "SLC500_IP",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadRequiresAtLeastOnePLC(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error when no PLCs are configured")
	}
}

func TestLoadMockPLC(t *testing.T) {
	clearEnv(t)
	os.Setenv("GATEWAY_MOCK_PLC", "1")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.PLCs) != 2 {
		t.Fatalf("expected 2 mock PLCs, got %d", len(cfg.PLCs))
	}
	for _, plc := range cfg.PLCs {
		if plc.Family != FamilyMock {
			t.Errorf("expected FamilyMock, got %s", plc.Family)
		}
	}
}

func TestLoadMockFailReconnect(t *testing.T) {
	clearEnv(t)
	os.Setenv("GATEWAY_MOCK_PLC", "1")
	os.Setenv("GATEWAY_MOCK_FAIL_RECONNECT", "1")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, plc := range cfg.PLCs {
		if !plc.MockFailReconn {
			t.Errorf("expected MockFailReconn on %s", plc.Name)
		}
	}
}

func TestLoadRealPLCs(t *testing.T) {
	clearEnv(t)
	os.Setenv("COMPACTLOGIX_IP", "10.0.0.5")
	os.Setenv("SLC500_IP", "10.0.0.6")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.PLCs) != 2 {
		t.Fatalf("expected 2 PLCs, got %d", len(cfg.PLCs))
	}
	if cfg.PLCs[0].Family != FamilyCompactLogix || cfg.PLCs[0].Address != "10.0.0.5" {
		t.Errorf("unexpected compactlogix config: %+v", cfg.PLCs[0])
	}
	if cfg.PLCs[1].Family != FamilySLC500 || cfg.PLCs[1].Address != "10.0.0.6" {
		t.Errorf("unexpected slc500 config: %+v", cfg.PLCs[1])
	}
}

func TestReconnectMaxMustBeAtLeastBase(t *testing.T) {
	clearEnv(t)
	os.Setenv("GATEWAY_MOCK_PLC", "1")
	os.Setenv("RECONNECT_BASE", "30")
	os.Setenv("RECONNECT_MAX", "5")
	defer clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error when RECONNECT_MAX < RECONNECT_BASE")
	}
}

func TestMetricsPortFallsBackToPrometheusPort(t *testing.T) {
	clearEnv(t)
	os.Setenv("GATEWAY_MOCK_PLC", "1")
	os.Setenv("PROMETHEUS_PORT", "9999")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MetricsPort != 9999 {
		t.Errorf("expected MetricsPort 9999, got %d", cfg.MetricsPort)
	}
}

func TestDurationSecondsEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("POLL_PERIOD", "2.5")
	os.Setenv("GATEWAY_MOCK_PLC", "1")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := 2500 * time.Millisecond
	if cfg.PLCs[0].PollPeriod != want {
		t.Errorf("expected PollPeriod %v, got %v", want, cfg.PLCs[0].PollPeriod)
	}
}

func TestLoadTagSeedsEmptyPathIsNotError(t *testing.T) {
	seeds, err := LoadTagSeeds("")
	if err != nil {
		t.Fatalf("LoadTagSeeds: %v", err)
	}
	if seeds != nil {
		t.Errorf("expected nil seeds, got %v", seeds)
	}
}

func TestLoadTagSeedsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/tags.yaml"
	doc := `
tags:
  - id: T1
    plc: compactlogix
    address: Main.Temp
    datatype: Decimal
    value: "72.50"
    scale: 2
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	seeds, err := LoadTagSeeds(path)
	if err != nil {
		t.Fatalf("LoadTagSeeds: %v", err)
	}
	if len(seeds) != 1 || seeds[0].ID != "T1" {
		t.Fatalf("unexpected seeds: %+v", seeds)
	}
	if seeds[0].Scale != 2 {
		t.Errorf("expected scale 2, got %d", seeds[0].Scale)
	}
}
