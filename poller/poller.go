// Package poller implements the per-PLC Poller described in §4.3: a
// connect/read/backoff state machine modeled on the teacher's PLCWorker poll
// loop (ticker-driven, one goroutine per PLC), generalized to the gateway's
// three-state machine (Disconnected, Connected, Faulted) and its exact
// backoff formula.
package poller

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"plcgateway/driver"
	"plcgateway/gatewayerr"
	"plcgateway/tagstore"
	"plcgateway/value"
)

// State is the Poller's connection state machine position.
type State int

const (
	Disconnected State = iota
	Connected
	Faulted
)

func (s State) String() string {
	switch s {
	case Connected:
		return "Connected"
	case Faulted:
		return "Faulted"
	default:
		return "Disconnected"
	}
}

// Observer decouples the Poller from the HealthRegistry, per the "cyclic
// references between Poller and HealthRegistry" design note: the Poller
// holds only this interface, never a pointer back to health.Registry, and
// calls it unconditionally whether or not a real registry (or a metrics /
// OPC UA sink) is behind it.
type Observer interface {
	OnConnected(plc string)
	OnFailed(plc string, err error)
	OnBackoff(plc string, seconds float64)
	OnPollLatency(seconds float64)
	OnTagUpdate(plc, address string, v value.Value, quality tagstore.Quality)
}

// NoopObserver discards every event; it is the zero-cost default used
// wherever a caller hasn't wired a real observer for a given capability.
type NoopObserver struct{}

func (NoopObserver) OnConnected(string)       {}
func (NoopObserver) OnFailed(string, error)   {}
func (NoopObserver) OnBackoff(string, float64) {}
func (NoopObserver) OnPollLatency(float64)    {}
func (NoopObserver) OnTagUpdate(string, string, value.Value, tagstore.Quality) {}

// writeRequest is one queued write, retried on the next Connected tick.
type writeRequest struct {
	address string
	value   value.Value
	result  chan error
}

const writeQueueCapacity = 64

// Config configures one Poller instance.
type Config struct {
	PLCName       string
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	PollPeriod    time.Duration
}

// Poller owns one driver instance and polls every tag whose plc matches
// PLCName at PollPeriod, cooperatively interruptible via context.
type Poller struct {
	cfg      Config
	drv      driver.Driver
	store    *tagstore.Store
	observer Observer

	mu        sync.Mutex
	state     State
	failCount int

	writeQueue chan writeRequest

	wg sync.WaitGroup
}

// New constructs a Poller. It does not start polling until Run is called.
func New(cfg Config, drv driver.Driver, store *tagstore.Store, observer Observer) *Poller {
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.PollPeriod <= 0 {
		cfg.PollPeriod = time.Second
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = time.Second
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = 60 * time.Second
	}
	return &Poller{
		cfg:        cfg,
		drv:        drv,
		store:      store,
		observer:   observer,
		writeQueue: make(chan writeRequest, writeQueueCapacity),
	}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Backoff computes the current exponential backoff per §4.3:
// min(RECONNECT_MAX, RECONNECT_BASE * 2^(fail_count-1)).
func (p *Poller) backoff() time.Duration {
	p.mu.Lock()
	fc := p.failCount
	p.mu.Unlock()
	if fc <= 0 {
		return 0
	}
	seconds := p.cfg.ReconnectBase.Seconds() * math.Pow(2, float64(fc-1))
	capped := math.Min(p.cfg.ReconnectMax.Seconds(), seconds)
	return time.Duration(capped * float64(time.Second))
}

// EnqueueWrite queues a write for the next Connected cycle. If the queue is
// full (the PLC has been Faulted for a long time) it fails Unavailable
// rather than block, per §4.3.
func (p *Poller) EnqueueWrite(address string, v value.Value) error {
	req := writeRequest{address: address, value: v, result: make(chan error, 1)}
	select {
	case p.writeQueue <- req:
	default:
		return gatewayerr.Unavailablef("write queue full for plc %q", p.cfg.PLCName)
	}
	select {
	case err := <-req.result:
		return err
	case <-time.After(p.cfg.PollPeriod*3 + 2*time.Second):
		return gatewayerr.Timeoutf("write to %q on plc %q timed out waiting for a poll cycle", address, p.cfg.PLCName)
	}
}

// Run drives the state machine until ctx is cancelled. It is safe to call
// exactly once per Poller.
func (p *Poller) Run(ctx context.Context) {
	p.wg.Add(1)
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.drv.Disconnect()
			return
		default:
		}

		state := p.State()
		if state != Connected {
			if !p.sleepBackoff(ctx) {
				return
			}
			if err := p.attemptConnect(); err != nil {
				continue
			}
		}

		if !p.pollCycle(ctx) {
			return
		}
	}
}

// Wait blocks until Run has returned.
func (p *Poller) Wait() { p.wg.Wait() }

func (p *Poller) sleepBackoff(ctx context.Context) bool {
	d := p.backoff()
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Poller) attemptConnect() error {
	err := p.drv.Connect()
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failCount++
		p.state = Faulted
		p.observer.OnFailed(p.cfg.PLCName, err)
		p.observer.OnBackoff(p.cfg.PLCName, p.backoffLocked())
		return err
	}
	p.failCount = 0
	p.state = Connected
	p.observer.OnConnected(p.cfg.PLCName)
	p.observer.OnBackoff(p.cfg.PLCName, 0)
	return nil
}

// backoffLocked computes backoff assuming p.mu is already held.
func (p *Poller) backoffLocked() float64 {
	if p.failCount <= 0 {
		return 0
	}
	seconds := p.cfg.ReconnectBase.Seconds() * math.Pow(2, float64(p.failCount-1))
	return math.Min(p.cfg.ReconnectMax.Seconds(), seconds)
}

// pollCycle runs exactly one poll iteration (drain write queue, batched
// read, per-tag coercion and store update), then sleeps until the next
// tick. It returns false if ctx was cancelled.
func (p *Poller) pollCycle(ctx context.Context) bool {
	p.drainWriteQueue()

	addresses := p.store.AddressesForPLC(p.cfg.PLCName)
	if len(addresses) > 0 {
		start := time.Now()
		results, err := p.drv.Read(addresses)
		p.observer.OnPollLatency(time.Since(start).Seconds())

		if err != nil {
			p.transitionToFaulted(err)
			return p.waitTick(ctx)
		}

		for _, res := range results {
			id, ok := p.store.FindByPLCAddress(p.cfg.PLCName, res.Address)
			if !ok {
				continue
			}
			if res.Err != nil {
				p.store.MarkQuality(id, tagstore.Bad)
				continue
			}
			rec, err := p.store.Get(id)
			if err != nil {
				continue
			}
			coerced, err := value.CoerceFromDriver(rec.DataType, res.Raw, rec.Scale)
			if err != nil {
				p.store.MarkQuality(id, tagstore.Bad)
				continue
			}
			p.store.UpdateValue(id, coerced, tagstore.Good, time.Now())
			p.observer.OnTagUpdate(p.cfg.PLCName, res.Address, coerced, tagstore.Good)
		}
	}

	return p.waitTick(ctx)
}

func (p *Poller) waitTick(ctx context.Context) bool {
	timer := time.NewTimer(p.cfg.PollPeriod)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Poller) transitionToFaulted(err error) {
	p.mu.Lock()
	p.state = Faulted
	p.failCount++
	backoffSeconds := p.backoffLocked()
	p.mu.Unlock()

	for _, rec := range p.store.SnapshotByPLC(p.cfg.PLCName) {
		p.store.MarkQuality(rec.ID, tagstore.Stale)
	}
	p.observer.OnFailed(p.cfg.PLCName, err)
	p.observer.OnBackoff(p.cfg.PLCName, backoffSeconds)
}

// drainWriteQueue applies every currently queued write in FIFO order before
// the cycle's read, matching the teacher's poll-loop ordering where queued
// writes are retried ahead of fresh reads.
func (p *Poller) drainWriteQueue() {
	for {
		select {
		case req := <-p.writeQueue:
			err := p.drv.Write(req.address, writeRawValue(req.value))
			if err != nil {
				err = fmt.Errorf("poller: write %q on plc %q: %w", req.address, p.cfg.PLCName, err)
			}
			req.result <- err
		default:
			return
		}
	}
}

func writeRawValue(v value.Value) interface{} {
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
