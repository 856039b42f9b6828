package poller

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"plcgateway/driver"
	"plcgateway/gatewayerr"
	"plcgateway/tagstore"
	"plcgateway/value"
)

// fakeDriver is a minimal driver.Driver double for state-machine tests.
type fakeDriver struct {
	mu          sync.Mutex
	connected   bool
	failConnect int // number of remaining Connect() calls to fail
	failRead    bool
	reads       int
	lastWrite   struct {
		address string
		value   interface{}
	}
}

func (d *fakeDriver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failConnect > 0 {
		d.failConnect--
		return fmt.Errorf("fake connect failure")
	}
	d.connected = true
	return nil
}

func (d *fakeDriver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

func (d *fakeDriver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *fakeDriver) Read(addresses []string) ([]driver.ReadResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if d.failRead {
		return nil, fmt.Errorf("fake read failure")
	}
	out := make([]driver.ReadResult, len(addresses))
	for i, a := range addresses {
		out[i] = driver.ReadResult{Address: a, Raw: int64(42)}
	}
	return out, nil
}

func (d *fakeDriver) Write(address string, v interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastWrite.address = address
	d.lastWrite.value = v
	return nil
}

type fakeObserver struct {
	mu         sync.Mutex
	connected  []string
	failed     []string
	backoffs   []float64
	tagUpdates int
}

func (o *fakeObserver) OnConnected(plc string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connected = append(o.connected, plc)
}
func (o *fakeObserver) OnFailed(plc string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, plc)
}
func (o *fakeObserver) OnBackoff(plc string, s float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.backoffs = append(o.backoffs, s)
}
func (o *fakeObserver) OnPollLatency(float64) {}
func (o *fakeObserver) OnTagUpdate(plc, address string, v value.Value, q tagstore.Quality) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tagUpdates++
}

func TestPollerConnectsAndUpdatesStore(t *testing.T) {
	store := tagstore.New()
	store.Insert(tagstore.Record{ID: "T", PLC: "compactlogix", Address: "Main.Temp", DataType: value.Int})

	d := &fakeDriver{}
	obs := &fakeObserver{}
	p := New(Config{PLCName: "compactlogix", PollPeriod: 10 * time.Millisecond}, d, store, obs)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, _ := store.Get("T")
		if rec.Quality == tagstore.Good {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	p.Wait()

	rec, err := store.Get("T")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Quality != tagstore.Good || rec.Value.IntV != 42 {
		t.Fatalf("expected polled value, got %+v", rec)
	}
	if len(obs.connected) == 0 {
		t.Fatalf("expected OnConnected to fire")
	}
	obs.mu.Lock()
	updates := obs.tagUpdates
	obs.mu.Unlock()
	if updates == 0 {
		t.Fatalf("expected OnTagUpdate to fire at least once")
	}
}

func TestPollerAppliesConfiguredScaleToDecimalTags(t *testing.T) {
	store := tagstore.New()
	store.Insert(tagstore.Record{ID: "T", PLC: "compactlogix", Address: "Main.Temp", DataType: value.Decimal, Scale: 2})

	d := &fakeDriver{}
	obs := &fakeObserver{}
	p := New(Config{PLCName: "compactlogix", PollPeriod: 10 * time.Millisecond}, d, store, obs)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, _ := store.Get("T")
		if rec.Quality == tagstore.Good {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	p.Wait()

	rec, err := store.Get("T")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Value.DecimalV.String() != "0.42" {
		t.Fatalf("expected raw 42 scaled by 10^-2 to be 0.42, got %s", rec.Value.DecimalV.String())
	}
}

func TestPollerTransitionsToFaultedOnReadFailure(t *testing.T) {
	store := tagstore.New()
	store.Insert(tagstore.Record{ID: "T", PLC: "compactlogix", Address: "Main.Temp", DataType: value.Int})

	d := &fakeDriver{failRead: true}
	obs := &fakeObserver{}
	p := New(Config{PLCName: "compactlogix", PollPeriod: 10 * time.Millisecond, ReconnectBase: 10 * time.Millisecond}, d, store, obs)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.State() == Faulted {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	p.Wait()

	if p.State() != Faulted {
		t.Fatalf("expected Faulted state, got %s", p.State())
	}
	rec, _ := store.Get("T")
	if rec.Quality != tagstore.Stale {
		t.Fatalf("expected Stale quality after fault, got %s", rec.Quality)
	}
}

func TestEnqueueWriteAppliedOnNextConnectedCycle(t *testing.T) {
	store := tagstore.New()
	d := &fakeDriver{}
	obs := &fakeObserver{}
	p := New(Config{PLCName: "compactlogix", PollPeriod: 10 * time.Millisecond}, d, store, obs)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	defer func() {
		cancel()
		p.Wait()
	}()

	// Wait for the driver to connect before enqueuing.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !d.IsConnected() {
		time.Sleep(5 * time.Millisecond)
	}

	if err := p.EnqueueWrite("Main.Count", value.NewInt(99)); err != nil {
		t.Fatalf("EnqueueWrite: %v", err)
	}
	if d.lastWrite.address != "Main.Count" {
		t.Fatalf("expected driver.Write to be called, got %+v", d.lastWrite)
	}
}

func TestEnqueueWriteFailsUnavailableWhenQueueFull(t *testing.T) {
	store := tagstore.New()
	d := &fakeDriver{failConnect: 1000} // never connects
	obs := &fakeObserver{}
	p := New(Config{PLCName: "compactlogix", PollPeriod: time.Hour, ReconnectBase: time.Hour}, d, store, obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	for i := 0; i < writeQueueCapacity; i++ {
		p.writeQueue <- writeRequest{address: "x", value: value.NewInt(1), result: make(chan error, 1)}
	}
	err := p.EnqueueWrite("y", value.NewInt(1))
	if !gatewayerr.Is(err, gatewayerr.Unavailable) {
		t.Fatalf("expected Unavailable error when queue is full, got %v", err)
	}
}
