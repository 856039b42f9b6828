package opcua

import (
	"testing"

	"plcgateway/gatewayerr"
	"plcgateway/tagstore"
	"plcgateway/value"
)

type fakeWriter struct {
	plc, addr string
	value     value.Value
}

func (f *fakeWriter) EnqueueWrite(plc, address string, v value.Value) error {
	f.plc, f.addr, f.value = plc, address, v
	return nil
}

func newTestServer(t *testing.T) (*Server, *tagstore.Store, *fakeWriter) {
	t.Helper()
	store := tagstore.New()
	w := &fakeWriter{}
	return New(store, w), store, w
}

func TestBrowseNodesAssignsVariantFromDataType(t *testing.T) {
	s, store, _ := newTestServer(t)
	store.Insert(tagstore.Record{ID: "T1", PLC: "compactlogix", Address: "Main.Temp", DataType: value.Decimal, Writable: true})

	nodes := s.BrowseNodes()
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if nodes[0].Variant != VariantString {
		t.Fatalf("expected Decimal datatype to map to VariantString, got %s", nodes[0].Variant)
	}
}

func TestReadNodeUnknownReturnsNotFound(t *testing.T) {
	s, _, _ := newTestServer(t)
	_, err := s.ReadNode("ns=2;s=nope/T1")
	if !gatewayerr.Is(err, gatewayerr.NotFound) {
		t.Fatalf("expected NotFound for unknown node, got %v", err)
	}
}

func TestWriteNodeRoutesThroughWriterAndStore(t *testing.T) {
	s, store, w := newTestServer(t)
	store.Insert(tagstore.Record{ID: "T1", PLC: "compactlogix", Address: "Main.Count", DataType: value.Int, Writable: true})
	nodes := s.BrowseNodes()
	nodeID := nodes[0].NodeID

	if err := s.WriteNode(nodeID, int64(99)); err != nil {
		t.Fatalf("WriteNode: %v", err)
	}
	if w.plc != "compactlogix" || w.addr != "Main.Count" {
		t.Fatalf("expected write routed through writer, got %+v", w)
	}
	rec, _ := store.Get("T1")
	if rec.Value.IntV != 99 {
		t.Fatalf("expected store updated, got %+v", rec)
	}
}

func TestWriteNodeTypeMismatchReturnsError(t *testing.T) {
	s, store, _ := newTestServer(t)
	store.Insert(tagstore.Record{ID: "T1", PLC: "compactlogix", Address: "Main.Flag", DataType: value.Bool, Writable: true})
	nodes := s.BrowseNodes()

	err := s.WriteNode(nodes[0].NodeID, "not-a-bool")
	if err == nil {
		t.Fatalf("expected type mismatch error")
	}
}

func TestBrowsePathStripsNodeIDPrefix(t *testing.T) {
	got := BrowsePath("ns=2;s=compactlogix/T1")
	if got != "compactlogix.T1" {
		t.Fatalf("got %q", got)
	}
}
