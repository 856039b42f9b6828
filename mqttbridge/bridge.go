// Package mqttbridge is the gateway's optional third observer: it
// republishes TagStore changes to an MQTT broker, trimmed from the
// teacher's mqtt.Publisher down to the single concern the gateway's "two
// north-bound interfaces" spec calls additive — change-driven publish on a
// per-PLC topic tree, with last-value caching so unchanged reads don't
// spam the broker. Connection retry and TLS follow the teacher's
// Publisher.Start shape; the bridge subscribes to no topics, and the
// worker-pool write path is dropped since REST/OPC UA already own writes
// here (see DESIGN.md).
package mqttbridge

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"plcgateway/logging"
	"plcgateway/namespace"
	"plcgateway/tagstore"
	"plcgateway/value"
)

// Config configures one broker connection.
type Config struct {
	BrokerURL string // e.g. "tcp://localhost:1883" or "ssl://host:8883"
	ClientID  string
	Namespace string
	Selector  string
}

// tagMessage is the JSON payload published per tag change.
type tagMessage struct {
	PLC       string      `json:"plc"`
	Tag       string      `json:"tag"`
	Value     interface{} `json:"value"`
	Quality   string      `json:"quality"`
	Timestamp string      `json:"timestamp"`
}

// Bridge republishes tag changes to MQTT. It implements poller.Observer
// structurally: OnConnected/OnFailed/OnBackoff republish PLC health, and
// OnTagUpdate republishes a changed tag value through Publish.
type Bridge struct {
	cfg Config
	ns  *namespace.Builder

	mu      sync.RWMutex
	client  pahomqtt.Client
	running bool

	lastMu     sync.Mutex
	lastValues map[string]interface{}
}

// New builds a Bridge; call Start to connect.
func New(cfg Config) *Bridge {
	return &Bridge{
		cfg:        cfg,
		ns:         namespace.New(cfg.Namespace, cfg.Selector),
		lastValues: make(map[string]interface{}),
	}
}

// Start connects to the broker with auto-reconnect, matching the teacher's
// Publisher.Start retry/keepalive configuration.
func (b *Bridge) Start() error {
	b.mu.RLock()
	if b.running {
		b.mu.RUnlock()
		return nil
	}
	b.mu.RUnlock()

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(b.cfg.BrokerURL)
	opts.SetClientID(b.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})

	client := pahomqtt.NewClient(opts)
	logging.DebugLog("mqtt", "connecting to broker %s", b.cfg.BrokerURL)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqttbridge: connection to %s timed out", b.cfg.BrokerURL)
	}
	if token.Error() != nil {
		logging.DebugConnectError("mqtt", b.cfg.BrokerURL, token.Error())
		return token.Error()
	}
	logging.DebugConnectSuccess("mqtt", b.cfg.BrokerURL, "")

	b.mu.Lock()
	b.client = client
	b.running = true
	b.mu.Unlock()
	return nil
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running || b.client == nil {
		return
	}
	b.client.Disconnect(250)
	b.client = nil
	b.running = false
}

// Publish republishes one tag's value if it has changed since the last
// call, mirroring the teacher's change-detection cache.
func (b *Bridge) Publish(plc, tag string, value interface{}, quality string) {
	b.mu.RLock()
	client := b.client
	running := b.running
	b.mu.RUnlock()
	if !running || client == nil {
		return
	}

	key := plc + "/" + tag
	b.lastMu.Lock()
	last, seen := b.lastValues[key]
	changed := !seen || fmt.Sprintf("%v", last) != fmt.Sprintf("%v", value)
	if changed {
		b.lastValues[key] = value
	}
	b.lastMu.Unlock()
	if !changed {
		return
	}

	msg := tagMessage{
		PLC: plc, Tag: tag, Value: value, Quality: quality,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	topic := b.ns.TagTopic(plc, tag)
	token := client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(2 * time.Second) {
		logging.DebugLog("mqtt", "publish to %s timed out", topic)
	}
}

// OnConnected, OnFailed, OnBackoff, OnPollLatency (a no-op here), and
// OnTagUpdate satisfy poller.Observer structurally, letting the gateway fold
// an MQTT health republish into the same MultiObserver fan-out that drives
// HealthRegistry and metrics.Registry.
func (b *Bridge) OnConnected(plc string) {
	b.publishHealth(plc, true, 0)
}

func (b *Bridge) OnFailed(plc string, err error) {
	b.publishHealth(plc, false, 0)
}

func (b *Bridge) OnBackoff(plc string, seconds float64) {
	b.publishHealth(plc, false, seconds)
}

func (b *Bridge) OnPollLatency(float64) {}

// OnTagUpdate is the Observer hook the Poller calls after every successfully
// coerced reading; it republishes through Publish using the tag's address as
// the MQTT topic segment (the gateway doesn't expose tag ids over MQTT, only
// plc/address, matching the teacher's BuildTopic shape).
func (b *Bridge) OnTagUpdate(plc, address string, v value.Value, quality tagstore.Quality) {
	b.Publish(plc, address, goValue(v), string(quality))
}

func goValue(v value.Value) interface{} {
	switch v.Type {
	case value.Bool:
		return v.BoolV
	case value.Int:
		return v.IntV
	case value.Real:
		return v.RealV
	case value.Decimal:
		return v.DecimalV.String()
	case value.String:
		return v.StringV
	default:
		return nil
	}
}

type healthMessage struct {
	Connected    bool    `json:"connected"`
	LastBackoffS float64 `json:"last_backoff_s"`
	Timestamp    string  `json:"timestamp"`
}

func (b *Bridge) publishHealth(plc string, connected bool, backoffSeconds float64) {
	b.mu.RLock()
	client := b.client
	running := b.running
	b.mu.RUnlock()
	if !running || client == nil {
		return
	}
	msg := healthMessage{Connected: connected, LastBackoffS: backoffSeconds, Timestamp: time.Now().UTC().Format(time.RFC3339)}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	client.Publish(b.ns.HealthTopic(plc), 1, true, payload)
}
