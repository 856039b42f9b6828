package health

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMarkFailedIncrementsAndMarkConnectedResets(t *testing.T) {
	r := New("")
	r.MarkFailed("compactlogix", errors.New("timeout"))
	r.MarkFailed("compactlogix", errors.New("timeout"))
	e := r.Get("compactlogix")
	if e.FailCount != 2 || e.Connected {
		t.Fatalf("expected FailCount=2 disconnected, got %+v", e)
	}

	r.RecordBackoff("compactlogix", 4)
	r.MarkConnected("compactlogix")
	e = r.Get("compactlogix")
	if !e.Connected || e.FailCount != 0 || e.LastBackoffS != 0 || e.ReconnectTotal != 1 {
		t.Fatalf("expected reset state after reconnect, got %+v", e)
	}
}

func TestBackoffProgression(t *testing.T) {
	base, max := 1.0, 8.0
	for failCount, want := range map[uint32]float64{1: 1, 2: 2, 3: 4, 10: 8} {
		got := math.Min(max, base*math.Pow(2, float64(failCount-1)))
		if got != want {
			t.Fatalf("failCount=%d: got %v want %v", failCount, got, want)
		}
	}
}

func TestSetReadyIsMonotoneAndWritesFile(t *testing.T) {
	dir := t.TempDir()
	readyFile := filepath.Join(dir, "ready")
	r := New(readyFile)

	if r.IsReady() {
		t.Fatalf("expected not ready before SetReady")
	}
	if err := r.SetReady(); err != nil {
		t.Fatalf("SetReady: %v", err)
	}
	if !r.IsReady() {
		t.Fatalf("expected ready after SetReady")
	}
	data, err := os.ReadFile(readyFile)
	if err != nil {
		t.Fatalf("reading ready file: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, string(data[:len(data)-1])); err != nil {
		t.Fatalf("ready file does not contain a parseable timestamp: %v", err)
	}

	// Calling SetReady again must not error or reset anything; state stays ready.
	if err := r.SetReady(); err != nil {
		t.Fatalf("second SetReady: %v", err)
	}
	if !r.IsReady() {
		t.Fatalf("expected still ready")
	}

	r.SetStopping()
	if r.IsReady() {
		t.Fatalf("expected not ready after stopping")
	}
}
