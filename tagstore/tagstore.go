// Package tagstore implements the TagStore: the authoritative, concurrency-safe
// in-memory map of tag id to TagRecord described in §3/§4.1. It is the single
// shared mutable resource in the process; REST, OPC UA, and every Poller hold
// a reference to the same *Store rather than a process-global singleton, per
// the "global state" design note.
package tagstore

import (
	"sync"
	"time"

	"plcgateway/gatewayerr"
	"plcgateway/value"
)

// Quality is the coarse freshness/validity label attached to every tag value.
type Quality string

const (
	Good          Quality = "Good"
	Stale         Quality = "Stale"
	Bad           Quality = "Bad"
	Uninitialized Quality = "Uninitialized"
)

// Record is the stored representation of one tag. Record values returned by
// the store are always snapshots (copies); mutating a returned Record never
// affects the store.
type Record struct {
	ID           string
	PLC          string
	Address      string
	DataType     value.DataType
	Value        value.Value
	Quality      Quality
	LastUpdateNs int64
	Writable     bool
	// Scale is the power-of-ten exponent applied when an integer PLC
	// register is coerced into a Decimal tag (see value.CoerceFromDriver).
	// Ignored for every other DataType.
	Scale int32
}

// Store is the TagStore. The zero value is not usable; use New.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func New() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Insert adds a new record. Fails with AlreadyExists if id is already
// present. The record's Value shape must match its declared DataType.
func (s *Store) Insert(r Record) error {
	if r.ID == "" {
		return gatewayerr.InvalidArgumentf("tag id must not be empty")
	}
	if !r.DataType.Valid() {
		return gatewayerr.InvalidArgumentf("unknown datatype %q", r.DataType)
	}
	if r.Quality == "" {
		r.Quality = Uninitialized
	}
	if r.Quality == Uninitialized {
		r.LastUpdateNs = 0
	}
	if r.Value.Type != "" && !r.Value.MatchesDataType(r.DataType) {
		return gatewayerr.TypeMismatchf("value type %s does not match declared datatype %s", r.Value.Type, r.DataType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.ID]; exists {
		return gatewayerr.AlreadyExistsf("tag %q already exists", r.ID)
	}
	cp := r
	s.records[r.ID] = &cp
	return nil
}

// Get returns an immutable snapshot of the record, or NotFound.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, gatewayerr.NotFoundf("tag %q not found", id)
	}
	return *rec, nil
}

// UpdateValue is used exclusively by the Poller to write a freshly coerced
// reading back into the store. It preserves datatype shape (the caller has
// already coerced raw to DataType) and fails with NotFound if the tag was
// deleted mid-cycle.
func (s *Store) UpdateValue(id string, v value.Value, q Quality, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return gatewayerr.NotFoundf("tag %q not found", id)
	}
	if v.Type != "" && !v.MatchesDataType(rec.DataType) {
		return gatewayerr.TypeMismatchf("value type %s does not match stored datatype %s", v.Type, rec.DataType)
	}
	rec.Value = v
	rec.Quality = q
	rec.LastUpdateNs = ts.UnixNano()
	return nil
}

// MarkQuality updates only the quality label, used by the Poller to mark an
// entire PLC's tags Stale on a Connected→Faulted transition without
// disturbing the last-known value.
func (s *Store) MarkQuality(id string, q Quality) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return gatewayerr.NotFoundf("tag %q not found", id)
	}
	rec.Quality = q
	return nil
}

// PatchFields restricts which fields a PATCH is allowed to touch.
type PatchFields struct {
	Value    *value.Value
	Writable *bool
}

// Patch applies a partial update from REST/OPC UA. datatype and plc are
// immutable after creation; only value and writable may change here.
func (s *Store) Patch(id string, fields PatchFields, ts time.Time) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, gatewayerr.NotFoundf("tag %q not found", id)
	}
	if fields.Value != nil {
		if !rec.Writable {
			return Record{}, gatewayerr.InvalidArgumentf("tag %q is not writable", id)
		}
		if !fields.Value.MatchesDataType(rec.DataType) {
			return Record{}, gatewayerr.TypeMismatchf("value type %s does not match datatype %s", fields.Value.Type, rec.DataType)
		}
		rec.Value = *fields.Value
		rec.Quality = Good
		rec.LastUpdateNs = ts.UnixNano()
	}
	if fields.Writable != nil {
		rec.Writable = *fields.Writable
	}
	return *rec, nil
}

// Delete removes a record; NotFound if absent.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return gatewayerr.NotFoundf("tag %q not found", id)
	}
	delete(s.records, id)
	return nil
}

// Snapshot returns a consistent view of every record: all records are copied
// under one read lock held for the whole call, so no partial record is ever
// observed. The Poller applies a cycle's readings one UpdateValue call at a
// time, so records in one snapshot can still reflect different poll cycles
// (see §5/§9's open question on GET /hmi/data consistency).
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out
}

// SnapshotByPLC is Snapshot filtered to one PLC name.
func (s *Store) SnapshotByPLC(plc string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0)
	for _, rec := range s.records {
		if rec.PLC == plc {
			out = append(out, *rec)
		}
	}
	return out
}

// AddressesForPLC returns the addresses of every tag belonging to plc, for
// the Poller to build a batched read request at the top of a poll cycle.
func (s *Store) AddressesForPLC(plc string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0)
	for _, rec := range s.records {
		if rec.PLC == plc {
			out = append(out, rec.Address)
		}
	}
	return out
}

// FindByPLCAddress locates the tag id owning (plc, address), used by the
// Poller to route a raw driver reading back to its TagRecord.
func (s *Store) FindByPLCAddress(plc, address string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, rec := range s.records {
		if rec.PLC == plc && rec.Address == address {
			return id, true
		}
	}
	return "", false
}
