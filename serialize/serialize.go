// Package serialize implements the Serializer component (§4.5): the
// type-preserving JSON encoding of a TagRecord or a snapshot, and the
// matching parser used by REST POST/PATCH bodies.
package serialize

import (
	"encoding/json"
	"fmt"

	"plcgateway/tagstore"
	"plcgateway/value"
)

// Wire is the JSON shape of one TagRecord crossing the REST boundary.
type Wire struct {
	ID           string          `json:"id"`
	PLC          string          `json:"plc"`
	Address      string          `json:"address"`
	DataType     value.DataType  `json:"datatype"`
	Value        json.RawMessage `json:"value"`
	Quality      string          `json:"quality,omitempty"`
	LastUpdateNs int64           `json:"last_update_ns,omitempty"`
	Writable     bool            `json:"writable"`
	Scale        int32           `json:"scale,omitempty"`
}

// Encode renders a tagstore.Record as its wire form, applying §4.5's rule:
// integers/bools/strings pass through natively, Decimal always becomes a
// JSON string preserving scale, and a missing/Uninitialized value becomes
// JSON null.
func Encode(rec tagstore.Record) (Wire, error) {
	var raw json.RawMessage
	if rec.Quality == tagstore.Uninitialized || rec.Value.Type == "" {
		raw = json.RawMessage("null")
	} else {
		b, err := json.Marshal(rec.Value)
		if err != nil {
			return Wire{}, fmt.Errorf("serialize: encoding value for %q: %w", rec.ID, err)
		}
		raw = b
	}
	return Wire{
		ID:           rec.ID,
		PLC:          rec.PLC,
		Address:      rec.Address,
		DataType:     rec.DataType,
		Value:        raw,
		Quality:      string(rec.Quality),
		LastUpdateNs: rec.LastUpdateNs,
		Writable:     rec.Writable,
		Scale:        rec.Scale,
	}, nil
}

// EncodeSnapshot renders a slice of records keyed by id, for GET /hmi/data.
func EncodeSnapshot(recs []tagstore.Record) (map[string]Wire, error) {
	out := make(map[string]Wire, len(recs))
	for _, rec := range recs {
		w, err := Encode(rec)
		if err != nil {
			return nil, err
		}
		out[rec.ID] = w
	}
	return out, nil
}

// CreateBody is the accepted shape of POST /tags: a TagRecord without the
// server-assigned quality/last_update_ns fields.
type CreateBody struct {
	ID       string          `json:"id"`
	PLC      string          `json:"plc"`
	Address  string          `json:"address"`
	DataType value.DataType  `json:"datatype"`
	Value    json.RawMessage `json:"value,omitempty"`
	Writable bool            `json:"writable"`
	Scale    int32           `json:"scale,omitempty"`
}

// ToRecord converts a CreateBody into a tagstore.Record, parsing Value
// (when present) according to DataType via value.ParseJSON.
func (b CreateBody) ToRecord() (tagstore.Record, error) {
	rec := tagstore.Record{
		ID:       b.ID,
		PLC:      b.PLC,
		Address:  b.Address,
		DataType: b.DataType,
		Writable: b.Writable,
		Quality:  tagstore.Uninitialized,
		Scale:    b.Scale,
	}
	if len(b.Value) > 0 && string(b.Value) != "null" {
		v, err := value.ParseJSON(b.DataType, b.Value)
		if err != nil {
			return tagstore.Record{}, err
		}
		rec.Value = v
		rec.Quality = tagstore.Good
	}
	return rec, nil
}

// PatchBody is the accepted shape of PATCH /tags/{id}: value and/or
// writable only; datatype and plc are immutable after creation.
type PatchBody struct {
	Value    json.RawMessage `json:"value,omitempty"`
	Writable *bool           `json:"writable,omitempty"`
}

// ToPatchFields converts a PatchBody into tagstore.PatchFields, parsing
// Value against the tag's already-stored dt.
func (b PatchBody) ToPatchFields(dt value.DataType) (tagstore.PatchFields, error) {
	var fields tagstore.PatchFields
	if len(b.Value) > 0 && string(b.Value) != "null" {
		v, err := value.ParseJSON(dt, b.Value)
		if err != nil {
			return tagstore.PatchFields{}, err
		}
		fields.Value = &v
	}
	fields.Writable = b.Writable
	return fields, nil
}
