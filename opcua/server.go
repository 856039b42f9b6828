// Package opcua implements the gateway's OPC UA adapter (§4.7): each tag is
// exposed as a variable node under a namespace rooted at the gateway, with
// reads and writes routed through the same TagStore path the REST adapter
// uses. No OPC UA client/server library appears anywhere in the example
// pack (the teacher and every other retrieved repo stop at EtherNet/IP,
// DF1, MQTT, Valkey, and Kafka), so the binary OPC UA protocol and its
// session/subscription machinery are out of scope here per spec.md's own
// "OPC UA node-tree plumbing... implementations are not prescribed" carve
// out; this package implements the node-tree semantics (NodeID naming,
// Variant derivation, write-through to TagStore) a transport binding would
// sit behind, grounded on the standard library alone — see DESIGN.md for
// why no ecosystem dependency could stand in here.
package opcua

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"plcgateway/gatewayerr"
	"plcgateway/restapi"
	"plcgateway/tagstore"
	"plcgateway/value"
)

// VariantType mirrors the OPC UA builtin type a node's value is encoded as.
type VariantType int

const (
	VariantBoolean VariantType = iota
	VariantInt64
	VariantDouble
	VariantString
)

func (v VariantType) String() string {
	switch v {
	case VariantBoolean:
		return "Boolean"
	case VariantInt64:
		return "Int64"
	case VariantDouble:
		return "Double"
	default:
		return "String"
	}
}

// variantForDataType implements §4.7's rule: node variant is derived from
// datatype, with Decimal always surfacing as the String variant bearing the
// exact textual form, preserving the REST serializer's rule.
func variantForDataType(dt value.DataType) VariantType {
	switch dt {
	case value.Bool:
		return VariantBoolean
	case value.Int:
		return VariantInt64
	case value.Real:
		return VariantDouble
	default:
		return VariantString
	}
}

// Node is one OPC UA variable node, addressed by NodeID and backed by one
// TagStore record.
type Node struct {
	NodeID   string
	TagID    string
	Variant  VariantType
	Value    interface{}
	Quality  string
	Writable bool
}

// nodeIDForTag builds the NodeID the gateway assigns a tag: a flat string
// path under the gateway's root, "ns=2;s=<plc>/<id>".
func nodeIDForTag(rec tagstore.Record) string {
	return fmt.Sprintf("ns=2;s=%s/%s", rec.PLC, rec.ID)
}

// Server is the OPC UA adapter. It holds the same collaborators the REST
// adapter does (per the "Global state" design note, both adapters receive
// explicit references rather than reaching a process-wide singleton).
type Server struct {
	store  *tagstore.Store
	writer restapi.WriteRouter

	mu       sync.RWMutex
	byNodeID map[string]string // NodeID -> tag id, rebuilt on every BrowseNodes
}

// New builds a Server over the given TagStore and write router.
func New(store *tagstore.Store, writer restapi.WriteRouter) *Server {
	return &Server{store: store, writer: writer, byNodeID: make(map[string]string)}
}

// BrowseNodes returns every tag's current Node, the OPC UA address-space
// listing subscribers would walk. Calling it also refreshes the NodeID ->
// tag id index ReadNode/WriteNode rely on.
func (s *Server) BrowseNodes() []Node {
	recs := s.store.Snapshot()
	index := make(map[string]string, len(recs))
	nodes := make([]Node, 0, len(recs))
	for _, rec := range recs {
		nodeID := nodeIDForTag(rec)
		index[nodeID] = rec.ID
		nodes = append(nodes, toNode(nodeID, rec))
	}
	s.mu.Lock()
	s.byNodeID = index
	s.mu.Unlock()
	return nodes
}

func toNode(nodeID string, rec tagstore.Record) Node {
	var raw interface{}
	if rec.Quality != tagstore.Uninitialized {
		raw = goValue(rec.Value)
	}
	return Node{
		NodeID:   nodeID,
		TagID:    rec.ID,
		Variant:  variantForDataType(rec.DataType),
		Value:    raw,
		Quality:  string(rec.Quality),
		Writable: rec.Writable,
	}
}

// goValue renders a value.Value as the plain Go value a Variant carries,
// applying the Decimal-as-exact-string rule.
func goValue(v value.Value) interface{} {
	switch v.Type {
	case value.Bool:
		return v.BoolV
	case value.Int:
		return v.IntV
	case value.Real:
		return v.RealV
	case value.Decimal:
		return v.String()
	case value.String:
		return v.StringV
	default:
		return nil
	}
}

// ReadNode resolves a NodeID to its current Node, or NotFound if the NodeID
// is unknown (tag deleted, or BrowseNodes never walked it).
func (s *Server) ReadNode(nodeID string) (Node, error) {
	s.mu.RLock()
	tagID, ok := s.byNodeID[nodeID]
	s.mu.RUnlock()
	if !ok {
		return Node{}, gatewayerr.NotFoundf("opcua: unknown node %q", nodeID)
	}
	rec, err := s.store.Get(tagID)
	if err != nil {
		return Node{}, err
	}
	return toNode(nodeID, rec), nil
}

// WriteNode applies a client-supplied value to the node's backing tag,
// through the same TagStore patch path the REST adapter uses. A Variant
// that doesn't match the tag's stored datatype is surfaced as
// BadTypeMismatch and logged by the caller, never fatal to the process.
func (s *Server) WriteNode(nodeID string, raw interface{}) error {
	s.mu.RLock()
	tagID, ok := s.byNodeID[nodeID]
	s.mu.RUnlock()
	if !ok {
		return gatewayerr.NotFoundf("opcua: unknown node %q", nodeID)
	}

	rec, err := s.store.Get(tagID)
	if err != nil {
		return err
	}
	v, err := coerceVariant(rec.DataType, raw)
	if err != nil {
		return gatewayerr.TypeMismatchf("opcua: node %q: %v", nodeID, err)
	}

	if s.writer != nil {
		if err := s.writer.EnqueueWrite(rec.PLC, rec.Address, v); err != nil {
			return err
		}
	}

	fields := tagstore.PatchFields{Value: &v}
	_, err = s.store.Patch(tagID, fields, time.Now())
	return err
}

func coerceVariant(dt value.DataType, raw interface{}) (value.Value, error) {
	switch dt {
	case value.Bool:
		if b, ok := raw.(bool); ok {
			return value.NewBool(b), nil
		}
	case value.Int:
		switch r := raw.(type) {
		case int64:
			return value.NewInt(r), nil
		case int:
			return value.NewInt(int64(r)), nil
		}
	case value.Real:
		if f, ok := raw.(float64); ok {
			return value.NewReal(f), nil
		}
	case value.String:
		if s, ok := raw.(string); ok {
			return value.NewString(s), nil
		}
	case value.Decimal:
		if s, ok := raw.(string); ok {
			return value.NewDecimalString(s)
		}
	}
	return value.Value{}, fmt.Errorf("value %v (%T) does not match datatype %s", raw, raw, dt)
}

// RootNamespace is the URI the gateway registers its node tree under,
// matching the "namespace rooted at the gateway" language in §4.7.
const RootNamespace = "urn:plcgateway:opcua"

// NamespaceURIs lists the namespace table a real binding would advertise in
// its GetEndpoints/CreateSession responses.
func NamespaceURIs() []string {
	return []string{"http://opcfoundation.org/UA/", RootNamespace}
}

// BrowsePath renders a dotted browse path for a NodeID, for logging and for
// clients that address nodes by path instead of by NodeID string.
func BrowsePath(nodeID string) string {
	trimmed := strings.TrimPrefix(nodeID, "ns=2;s=")
	return strings.ReplaceAll(trimmed, "/", ".")
}
