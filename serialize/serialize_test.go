package serialize

import (
	"encoding/json"
	"testing"

	"plcgateway/tagstore"
	"plcgateway/value"
)

func TestEncodeDecimalAsString(t *testing.T) {
	d, _ := value.NewDecimalString("1.2300")
	rec := tagstore.Record{ID: "T", PLC: "compactlogix", Address: "Main.Temp", DataType: value.Decimal, Value: d, Quality: tagstore.Good}

	w, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(w.Value) != `"1.2300"` {
		t.Fatalf("got %s, want \"1.2300\"", w.Value)
	}
}

func TestEncodeIntAsNumber(t *testing.T) {
	rec := tagstore.Record{ID: "N", PLC: "compactlogix", Address: "Main.Count", DataType: value.Int, Value: value.NewInt(7), Quality: tagstore.Good}
	w, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(w.Value) != "7" {
		t.Fatalf("got %s, want 7", w.Value)
	}
}

func TestEncodeUninitializedIsNull(t *testing.T) {
	rec := tagstore.Record{ID: "U", PLC: "compactlogix", Address: "Main.X", DataType: value.Real, Quality: tagstore.Uninitialized}
	w, err := Encode(rec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(w.Value) != "null" {
		t.Fatalf("got %s, want null", w.Value)
	}
}

func TestCreateBodyToRecordParsesDecimalString(t *testing.T) {
	body := CreateBody{
		ID:       "T",
		PLC:      "compactlogix",
		Address:  "Main.Temp",
		DataType: value.Decimal,
		Value:    json.RawMessage(`"1.2300"`),
	}
	rec, err := body.ToRecord()
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	if rec.Value.String() != "1.2300" {
		t.Fatalf("got %s", rec.Value.String())
	}
	if rec.Quality != tagstore.Good {
		t.Fatalf("expected Good quality once a value is supplied, got %s", rec.Quality)
	}
}

func TestPatchBodyRejectsBadValueForDataType(t *testing.T) {
	body := PatchBody{Value: json.RawMessage(`"not-a-bool"`)}
	_, err := body.ToPatchFields(value.Bool)
	if err == nil {
		t.Fatalf("expected parse error")
	}
}
