// Package restapi implements the HMI-facing REST adapter described in §6:
// tag CRUD under /api/v1/tags and process-level endpoints under /hmi, built on
// chi.Router the way the teacher's api/router.go builds its own handlers
// struct and nested routes.
package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"plcgateway/gatewayerr"
	"plcgateway/health"
	"plcgateway/serialize"
	"plcgateway/tagstore"
	"plcgateway/value"
)

// WriteRouter is the subset of poller behavior the REST adapter needs to
// route a PATCH-triggered write to the owning PLC's Poller. Keeping this as
// an interface (rather than importing *poller.Poller directly) mirrors the
// Observer pattern used elsewhere: restapi depends on a capability, not a
// concrete Poller.
type WriteRouter interface {
	EnqueueWrite(plc, address string, v value.Value) error
}

// Handlers holds the collaborators every endpoint needs, the same shape as
// the teacher's own handlers struct in api/router.go.
type Handlers struct {
	Store   *tagstore.Store
	Health  *health.Registry
	Writer  WriteRouter
	Stopper func()
}

// NewRouter builds the chi.Router exposing every endpoint in §6's table.
func NewRouter(h *Handlers) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tags", func(r chi.Router) {
			r.Post("/", h.createTag)
			r.Get("/", h.listTags)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getTag)
				r.Patch("/", h.patchTag)
				r.Delete("/", h.deleteTag)
			})
		})
	})

	r.Route("/hmi", func(r chi.Router) {
		r.Get("/data", h.hmiData)
		r.Get("/ready", h.hmiReady)
		r.Get("/health", h.hmiHealth)
		r.Post("/stop", h.hmiStop)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError maps a gatewayerr.Kind to the HTTP status codes named in §4.6.
func writeError(w http.ResponseWriter, err error) {
	kind := gatewayerr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case gatewayerr.NotFound:
		status = http.StatusNotFound
	case gatewayerr.AlreadyExists:
		status = http.StatusConflict
	case gatewayerr.InvalidArgument:
		status = http.StatusBadRequest
	case gatewayerr.TypeMismatch:
		status = http.StatusUnprocessableEntity
	case gatewayerr.Unavailable:
		status = http.StatusServiceUnavailable
	case gatewayerr.Timeout:
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}
