package restapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"plcgateway/gatewayerr"
	"plcgateway/serialize"
	"plcgateway/tagstore"
)

// createTag handles POST /api/v1/tags.
func (h *Handlers) createTag(w http.ResponseWriter, r *http.Request) {
	var body serialize.CreateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, gatewayerr.InvalidArgumentf("malformed request body: %v", err))
		return
	}
	rec, err := body.ToRecord()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Store.Insert(rec); err != nil {
		writeError(w, err)
		return
	}
	wire, err := serialize.Encode(rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wire)
}

// listTags handles GET /api/v1/tags, optionally filtered by ?plc=name.
func (h *Handlers) listTags(w http.ResponseWriter, r *http.Request) {
	plc := r.URL.Query().Get("plc")
	var recs []tagstore.Record
	if plc != "" {
		recs = h.Store.SnapshotByPLC(plc)
	} else {
		recs = h.Store.Snapshot()
	}
	out := make([]serialize.Wire, 0, len(recs))
	for _, rec := range recs {
		wire, err := serialize.Encode(rec)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, wire)
	}
	writeJSON(w, http.StatusOK, out)
}

// getTag handles GET /api/v1/tags/{id}.
func (h *Handlers) getTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	wire, err := serialize.Encode(rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wire)
}

// patchTag handles PATCH /api/v1/tags/{id}: updates value and/or writable,
// and when a value is supplied, enqueues the write on the owning PLC's
// Poller before acknowledging, per §4.6's write-through semantics.
func (h *Handlers) patchTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var body serialize.PatchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, gatewayerr.InvalidArgumentf("malformed request body: %v", err))
		return
	}
	fields, err := body.ToPatchFields(rec.DataType)
	if err != nil {
		writeError(w, err)
		return
	}

	if fields.Value != nil && h.Writer != nil {
		if err := h.Writer.EnqueueWrite(rec.PLC, rec.Address, *fields.Value); err != nil {
			writeError(w, err)
			return
		}
	}

	updated, err := h.Store.Patch(id, fields, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	wire, err := serialize.Encode(updated)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wire)
}

type deletedBody struct {
	Deleted string `json:"deleted"`
}

// deleteTag handles DELETE /api/v1/tags/{id}.
func (h *Handlers) deleteTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedBody{Deleted: id})
}

// hmiData handles GET /hmi/data: a full snapshot keyed by tag id, the
// primary feed the HMI polls.
func (h *Handlers) hmiData(w http.ResponseWriter, r *http.Request) {
	recs := h.Store.Snapshot()
	out, err := serialize.EncodeSnapshot(recs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type readyBody struct {
	Ready bool   `json:"ready"`
	State string `json:"state"`
}

// hmiReady handles GET /hmi/ready: a liveness/readiness probe returning 200
// once SetReady has fired, 503 beforehand or once stopping.
func (h *Handlers) hmiReady(w http.ResponseWriter, r *http.Request) {
	ready := h.Health.IsReady()
	status := http.StatusServiceUnavailable
	if ready {
		status = http.StatusOK
	}
	writeJSON(w, status, readyBody{Ready: ready, State: h.Health.State().String()})
}

type healthBody struct {
	State string                   `json:"state"`
	PLCs  map[string]healthPLCBody `json:"plcs"`
}

type healthPLCBody struct {
	Connected      bool    `json:"connected"`
	FailCount      uint32  `json:"fail_count"`
	LastBackoffS   float64 `json:"last_backoff_s"`
	ReconnectTotal uint64  `json:"reconnect_total"`
	LastError      string  `json:"last_error,omitempty"`
}

// hmiHealth handles GET /hmi/health: per-PLC connection health plus the
// process readiness state.
func (h *Handlers) hmiHealth(w http.ResponseWriter, r *http.Request) {
	entries := h.Health.SnapshotAll()
	plcs := make(map[string]healthPLCBody, len(entries))
	for plc, e := range entries {
		plcs[plc] = healthPLCBody{
			Connected:      e.Connected,
			FailCount:      e.FailCount,
			LastBackoffS:   e.LastBackoffS,
			ReconnectTotal: e.ReconnectTotal,
			LastError:      e.LastError,
		}
	}
	writeJSON(w, http.StatusOK, healthBody{State: h.Health.State().String(), PLCs: plcs})
}

type stoppingBody struct {
	Stopping bool `json:"stopping"`
}

// hmiStop handles POST /hmi/stop: the operator-initiated graceful shutdown
// trigger described in §6. It marks the process Stopping and invokes the
// caller-supplied Stopper (typically cancelling every Poller's context and
// beginning a bounded server shutdown) without blocking the HTTP response.
func (h *Handlers) hmiStop(w http.ResponseWriter, r *http.Request) {
	h.Health.SetStopping()
	if h.Stopper != nil {
		go h.Stopper()
	}
	writeJSON(w, http.StatusOK, stoppingBody{Stopping: true})
}
