package restapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"plcgateway/gatewayerr"
	"plcgateway/health"
	"plcgateway/tagstore"
	"plcgateway/value"
)

type fakeWriter struct {
	lastPLC, lastAddr string
	lastValue         value.Value
	err               error
}

func (f *fakeWriter) EnqueueWrite(plc, address string, v value.Value) error {
	f.lastPLC, f.lastAddr, f.lastValue = plc, address, v
	return f.err
}

func newTestHandlers() (*Handlers, *fakeWriter) {
	store := tagstore.New()
	hreg := health.New("")
	w := &fakeWriter{}
	return &Handlers{Store: store, Health: hreg, Writer: w}, w
}

func TestCreateAndGetTag(t *testing.T) {
	h, _ := newTestHandlers()
	r := NewRouter(h)

	body, _ := json.Marshal(map[string]interface{}{
		"id": "T1", "plc": "compactlogix", "address": "Main.Temp",
		"datatype": "Int", "writable": true,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tags/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tags/T1/", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: got %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestGetTagNotFoundReturns404(t *testing.T) {
	h, _ := newTestHandlers()
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tags/missing/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
}

func TestCreateDuplicateReturns409(t *testing.T) {
	h, _ := newTestHandlers()
	r := NewRouter(h)
	body, _ := json.Marshal(map[string]interface{}{"id": "T1", "plc": "p", "address": "a", "datatype": "Int"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tags/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/tags/", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second create: got %d, want 409", rec.Code)
	}
}

func TestPatchWritesThroughPoller(t *testing.T) {
	h, writer := newTestHandlers()
	if err := h.Store.Insert(tagstore.Record{ID: "T1", PLC: "compactlogix", Address: "Main.Count", DataType: value.Int, Writable: true}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	r := NewRouter(h)

	body, _ := json.Marshal(map[string]interface{}{"value": 7})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/tags/T1/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: got %d, body %s", rec.Code, rec.Body.String())
	}
	if writer.lastPLC != "compactlogix" || writer.lastAddr != "Main.Count" {
		t.Fatalf("expected write routed to poller, got %+v", writer)
	}
}

func TestPatchNonWritableRejected(t *testing.T) {
	h, _ := newTestHandlers()
	h.Store.Insert(tagstore.Record{ID: "T1", PLC: "p", Address: "a", DataType: value.Int, Writable: false})
	r := NewRouter(h)

	body, _ := json.Marshal(map[string]interface{}{"value": 7})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/tags/T1/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
}

func TestHmiReadyReflectsHealthState(t *testing.T) {
	h, _ := newTestHandlers()
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/hmi/ready", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", rec.Code)
	}

	h.Health.SetReady()
	req = httptest.NewRequest(http.MethodGet, "/hmi/ready", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after ready, got %d", rec.Code)
	}
}

func TestHmiStopTriggersStopperAndMarksStopping(t *testing.T) {
	h, _ := newTestHandlers()
	stopped := make(chan struct{})
	h.Stopper = func() { close(stopped) }
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/hmi/stop", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	var body stoppingBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Stopping {
		t.Fatalf("expected stopping=true in body, got %+v", body)
	}
	<-stopped
	if h.Health.State() != health.Stopping {
		t.Fatalf("expected Stopping state")
	}
}

func TestDeleteTagReturnsDeletedID(t *testing.T) {
	h, _ := newTestHandlers()
	if err := h.Store.Insert(tagstore.Record{ID: "T1", PLC: "p", Address: "a", DataType: value.Int}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tags/T1/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: got %d, body %s", rec.Code, rec.Body.String())
	}
	var body deletedBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Deleted != "T1" {
		t.Fatalf("expected deleted=T1, got %+v", body)
	}

	if _, err := h.Store.Get("T1"); err == nil {
		t.Fatalf("expected tag to be removed from store")
	}
}

func TestDeleteTagNotFoundReturns404(t *testing.T) {
	h, _ := newTestHandlers()
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/tags/missing/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want 404", rec.Code)
	}
}

func TestErrorKindMapsToStatus(t *testing.T) {
	cases := []struct {
		kind gatewayerr.Kind
		want int
	}{
		{gatewayerr.NotFound, http.StatusNotFound},
		{gatewayerr.AlreadyExists, http.StatusConflict},
		{gatewayerr.InvalidArgument, http.StatusBadRequest},
		{gatewayerr.TypeMismatch, http.StatusUnprocessableEntity},
		{gatewayerr.Unavailable, http.StatusServiceUnavailable},
		{gatewayerr.Timeout, http.StatusGatewayTimeout},
		{gatewayerr.Internal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, &gatewayerr.Error{Kind: c.kind, Msg: "x"})
		if rec.Code != c.want {
			t.Fatalf("kind %s: got %d, want %d", c.kind, rec.Code, c.want)
		}
	}
}
