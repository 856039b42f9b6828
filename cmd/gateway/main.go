// Command gateway is the PLC gateway's process entry point: it loads
// configuration, wires the TagStore, HealthRegistry, metrics and (optional)
// MQTT observers, starts one Poller per configured PLC, and serves the REST
// adapter, mirroring the teacher's cmd/warlink main's headless
// configure-then-run-until-signal shape, trimmed to this repository's
// components.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plcgateway/config"
	"plcgateway/driver"
	"plcgateway/health"
	"plcgateway/logging"
	"plcgateway/metrics"
	"plcgateway/mqttbridge"
	"plcgateway/opcua"
	"plcgateway/poller"
	"plcgateway/restapi"
	"plcgateway/tagstore"
	"plcgateway/value"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 clean shutdown, 1 configuration or
// startup failure, 2 a fatal runtime fault after startup.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		return 1
	}

	store := tagstore.New()
	healthReg := health.New(cfg.ReadyFile)
	promReg := prometheus.NewRegistry()
	metricsReg := metrics.New(promReg)

	if err := preloadTags(store, cfg.TagsFile); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		return 1
	}

	var bridge *mqttbridge.Bridge
	if cfg.MQTTBrokerURL != "" {
		bridge = mqttbridge.New(mqttbridge.Config{
			BrokerURL: cfg.MQTTBrokerURL,
			ClientID:  cfg.MQTTClientID,
			Namespace: "plcgateway",
		})
		if err := bridge.Start(); err != nil {
			// Missing optional dependencies are logged and bypassed; the
			// gateway must continue to run without the MQTT bridge.
			logging.DebugLog("mqtt", "bridge disabled: %v", err)
			bridge = nil
		}
	}

	pollers := make(map[string]*poller.Poller, len(cfg.PLCs))
	ctx, cancel := context.WithCancel(context.Background())
	var running []*poller.Poller

	for _, plcCfg := range cfg.PLCs {
		metricsReg.RegisterPLC(plcCfg.Name, plcCfg.Address)

		drv, err := driver.Create(plcCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
			cancel()
			return 1
		}

		observer := buildObserver(healthReg, metricsReg, bridge)
		p := poller.New(poller.Config{
			PLCName:       plcCfg.Name,
			ReconnectBase: cfg.ReconnectBase,
			ReconnectMax:  cfg.ReconnectMax,
			PollPeriod:    plcCfg.PollPeriod,
		}, drv, store, observer)

		pollers[plcCfg.Name] = p
		running = append(running, p)
		go p.Run(ctx)
	}

	writer := poller.NewRouter(pollers)
	handlers := &restapi.Handlers{
		Store:  store,
		Health: healthReg,
		Writer: writer,
	}

	opcuaSrv := opcua.New(store, writer)
	go runOPCUARefresh(ctx, opcuaSrv)

	mux := http.NewServeMux()
	mux.Handle("/", restapi.NewRouter(handlers))
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	restAddr := fmt.Sprintf("%s:%d", cfg.RESTHost, cfg.RESTPort)
	server := &http.Server{Addr: restAddr, Handler: mux}

	shutdown := make(chan struct{})
	handlers.Stopper = func() {
		select {
		case <-shutdown:
		default:
			close(shutdown)
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	healthReg.SetReady()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		fmt.Printf("gateway: received %v, shutting down\n", sig)
	case <-shutdown:
		fmt.Println("gateway: stop requested, shutting down")
	case err := <-serverErr:
		fmt.Fprintf(os.Stderr, "gateway: REST server failed: %v\n", err)
		exitCode = 2
	}

	healthReg.SetStopping()
	cancel()
	for _, p := range running {
		p.Wait()
	}
	if bridge != nil {
		bridge.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	return exitCode
}

// runOPCUARefresh keeps the OPC UA adapter's NodeID index current by
// re-browsing the TagStore on an interval, standing in for the subscription
// publishing loop a full OPC UA binding would drive. It honors ctx
// cancellation the same way the Pollers' suspension points do.
func runOPCUARefresh(ctx context.Context, srv *opcua.Server) {
	srv.BrowseNodes()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			srv.BrowseNodes()
		}
	}
}

// buildObserver fans every Poller event out to the HealthRegistry, the
// metrics Registry, and — when configured — the MQTT bridge, per the
// "optional metrics / optional MQTT" capability-behind-an-interface design
// note: the Poller calls this unconditionally regardless of which sinks are
// actually live.
func buildObserver(h *health.Registry, m *metrics.Registry, bridge *mqttbridge.Bridge) poller.Observer {
	obs := poller.MultiObserver{h, m}
	if bridge != nil {
		obs = append(obs, bridge)
	}
	return obs
}

// preloadTags inserts every TagSeed from TAGS_FILE into the store before the
// first poll cycle runs, so readers never observe a gap between process
// start and tag registration.
func preloadTags(store *tagstore.Store, tagsFile string) error {
	seeds, err := config.LoadTagSeeds(tagsFile)
	if err != nil {
		return err
	}
	for _, seed := range seeds {
		rec := tagstore.Record{
			ID:       seed.ID,
			PLC:      seed.PLC,
			Address:  seed.Address,
			DataType: value.DataType(seed.DataType),
			Writable: seed.Writable,
			Quality:  tagstore.Uninitialized,
			Scale:    seed.Scale,
		}
		if seed.Value != "" {
			v, err := seedValue(rec.DataType, seed.Value)
			if err != nil {
				return fmt.Errorf("gateway: seeding tag %q: %w", seed.ID, err)
			}
			rec.Value = v
			rec.Quality = tagstore.Good
		}
		if err := store.Insert(rec); err != nil {
			return fmt.Errorf("gateway: seeding tag %q: %w", seed.ID, err)
		}
	}
	return nil
}

func seedValue(dt value.DataType, raw string) (value.Value, error) {
	switch dt {
	case value.Decimal:
		return value.NewDecimalString(raw)
	case value.String:
		return value.NewString(raw), nil
	default:
		return value.ParseJSON(dt, []byte(raw))
	}
}
