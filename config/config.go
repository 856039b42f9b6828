// Package config resolves the gateway's runtime configuration from environment
// variables, following the twelve-factor convention the rest of the pack uses
// for its process-level settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// PLCFamily identifies which driver backs a configured PLC.
type PLCFamily string

const (
	FamilyMock         PLCFamily = "mock"
	FamilyCompactLogix PLCFamily = "compactlogix"
	FamilySLC500       PLCFamily = "slc500"
)

func (f PLCFamily) String() string { return string(f) }

// PLCConfig describes one configured controller.
type PLCConfig struct {
	Name           string
	Family         PLCFamily
	Address        string
	SocketTimeout  time.Duration
	PollPeriod     time.Duration
	MockFailReconn bool // GATEWAY_MOCK_FAIL_RECONNECT: pre-seed a failed reconnect
}

// Config holds the resolved, immutable configuration for one process run.
type Config struct {
	PLCs []PLCConfig

	ReconnectBase time.Duration
	ReconnectMax  time.Duration

	ReadyFile string
	TagsFile  string

	MetricsPort int

	RESTHost string
	RESTPort int

	MQTTBrokerURL string // optional; empty disables the MQTT bridge
	MQTTClientID  string
}

// Load resolves Config from the process environment. It returns an error
// (rather than exiting) so callers control the process-1 startup-failure exit
// code described in the external interface contract.
func Load() (*Config, error) {
	cfg := &Config{
		ReconnectBase: 1 * time.Second,
		ReconnectMax:  60 * time.Second,
		RESTHost:      "0.0.0.0",
		RESTPort:      8080,
		MetricsPort:   9090,
	}

	var err error
	if cfg.ReconnectBase, err = durationSecondsEnv("RECONNECT_BASE", cfg.ReconnectBase); err != nil {
		return nil, err
	}
	if cfg.ReconnectMax, err = durationSecondsEnv("RECONNECT_MAX", cfg.ReconnectMax); err != nil {
		return nil, err
	}
	if cfg.ReconnectMax < cfg.ReconnectBase {
		return nil, fmt.Errorf("config: RECONNECT_MAX (%s) must be >= RECONNECT_BASE (%s)", cfg.ReconnectMax, cfg.ReconnectBase)
	}

	pollPeriod, err := durationSecondsEnv("POLL_PERIOD", time.Second)
	if err != nil {
		return nil, err
	}
	socketTimeout, err := durationSecondsEnv("PLC_SOCKET_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.ReadyFile = os.Getenv("READY_FILE")
	cfg.TagsFile = os.Getenv("TAGS_FILE")

	if p := firstNonEmpty(os.Getenv("METRICS_PORT"), os.Getenv("PROMETHEUS_PORT")); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("config: invalid METRICS_PORT/PROMETHEUS_PORT %q: %w", p, err)
		}
		cfg.MetricsPort = port
	}

	cfg.MQTTBrokerURL = os.Getenv("MQTT_BROKER_URL")
	cfg.MQTTClientID = os.Getenv("MQTT_CLIENT_ID")
	if cfg.MQTTClientID == "" {
		cfg.MQTTClientID = "plcgateway"
	}

	mockEnabled := boolEnv("GATEWAY_MOCK_PLC", false)
	mockFailReconnect := boolEnv("GATEWAY_MOCK_FAIL_RECONNECT", false)

	if mockEnabled {
		cfg.PLCs = []PLCConfig{
			{
				Name:           "compactlogix",
				Family:         FamilyMock,
				Address:        "mock://compactlogix",
				SocketTimeout:  socketTimeout,
				PollPeriod:     pollPeriod,
				MockFailReconn: mockFailReconnect,
			},
			{
				Name:           "slc500",
				Family:         FamilyMock,
				Address:        "mock://slc500",
				SocketTimeout:  socketTimeout,
				PollPeriod:     pollPeriod,
				MockFailReconn: mockFailReconnect,
			},
		}
		return cfg, nil
	}

	if ip := os.Getenv("COMPACTLOGIX_IP"); ip != "" {
		cfg.PLCs = append(cfg.PLCs, PLCConfig{
			Name:          "compactlogix",
			Family:        FamilyCompactLogix,
			Address:       ip,
			SocketTimeout: socketTimeout,
			PollPeriod:    pollPeriod,
		})
	}
	if ip := os.Getenv("SLC500_IP"); ip != "" {
		cfg.PLCs = append(cfg.PLCs, PLCConfig{
			Name:          "slc500",
			Family:        FamilySLC500,
			Address:       ip,
			SocketTimeout: socketTimeout,
			PollPeriod:    pollPeriod,
		})
	}

	if len(cfg.PLCs) == 0 {
		return nil, fmt.Errorf("config: no PLCs configured; set GATEWAY_MOCK_PLC=1 or COMPACTLOGIX_IP/SLC500_IP")
	}

	return cfg, nil
}

func durationSecondsEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	seconds, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", name, v, err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("config: %s must be non-negative, got %q", name, v)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func boolEnv(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
