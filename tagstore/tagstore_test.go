package tagstore

import (
	"testing"
	"time"

	"plcgateway/gatewayerr"
	"plcgateway/value"
)

func TestInsertGetRoundTrip(t *testing.T) {
	s := New()
	rec := Record{ID: "T", PLC: "compactlogix", Address: "Main.Temp", DataType: value.Decimal, Writable: true}
	if err := s.Insert(rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := s.Get("T")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != rec.ID || got.PLC != rec.PLC || got.Address != rec.Address {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Quality != Uninitialized || got.LastUpdateNs != 0 {
		t.Fatalf("expected Uninitialized quality with zero timestamp, got %+v", got)
	}
}

func TestInsertDuplicateFailsAlreadyExists(t *testing.T) {
	s := New()
	rec := Record{ID: "T", PLC: "compactlogix", Address: "Main.Temp", DataType: value.Int}
	if err := s.Insert(rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	err := s.Insert(rec)
	if !gatewayerr.Is(err, gatewayerr.AlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestGetMissingFailsNotFound(t *testing.T) {
	s := New()
	_, err := s.Get("nope")
	if !gatewayerr.Is(err, gatewayerr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestPatchRejectsNonWritable(t *testing.T) {
	s := New()
	rec := Record{ID: "T", PLC: "compactlogix", Address: "Main.Temp", DataType: value.Int, Writable: false}
	if err := s.Insert(rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	v := value.NewInt(5)
	_, err := s.Patch("T", PatchFields{Value: &v}, time.Now())
	if !gatewayerr.Is(err, gatewayerr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestPatchTypeMismatch(t *testing.T) {
	s := New()
	rec := Record{ID: "T", PLC: "compactlogix", Address: "Main.Temp", DataType: value.Int, Writable: true}
	if err := s.Insert(rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	v := value.NewBool(true)
	_, err := s.Patch("T", PatchFields{Value: &v}, time.Now())
	if !gatewayerr.Is(err, gatewayerr.TypeMismatch) {
		t.Fatalf("expected TypeMismatch, got %v", err)
	}
}

func TestUpdateValueAfterDeleteFailsNotFound(t *testing.T) {
	s := New()
	rec := Record{ID: "T", PLC: "compactlogix", Address: "Main.Temp", DataType: value.Int}
	if err := s.Insert(rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Delete("T"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	err := s.UpdateValue("T", value.NewInt(1), Good, time.Now())
	if !gatewayerr.Is(err, gatewayerr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSnapshotByPLCFilters(t *testing.T) {
	s := New()
	s.Insert(Record{ID: "A", PLC: "compactlogix", Address: "X", DataType: value.Int})
	s.Insert(Record{ID: "B", PLC: "slc500", Address: "N7:0", DataType: value.Int})

	got := s.SnapshotByPLC("compactlogix")
	if len(got) != 1 || got[0].ID != "A" {
		t.Fatalf("expected only A, got %+v", got)
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	s := New()
	s.Insert(Record{ID: "T", PLC: "compactlogix", Address: "X", DataType: value.Int, Writable: true})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			s.UpdateValue("T", value.NewInt(int64(i)), Good, time.Now())
		}
		close(done)
	}()
	for i := 0; i < 1000; i++ {
		s.Get("T")
		s.Snapshot()
	}
	<-done
}
